// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package models

import "time"

// Competition classifies how contested a niche is.
type Competition string

// Competition tiers, ordered from least to most contested.
const (
	CompetitionLow    Competition = "low"
	CompetitionMedium Competition = "medium"
	CompetitionHigh   Competition = "high"
)

// Valid reports whether c is one of the known competition tiers.
func (c Competition) Valid() bool {
	switch c {
	case CompetitionLow, CompetitionMedium, CompetitionHigh:
		return true
	}
	return false
}

// HashtagSignal is one trending hashtag observed for a niche.
type HashtagSignal struct {
	Tag         string    `json:"tag"`
	Posts       int64     `json:"posts"`
	Trend       string    `json:"trend"`
	Engagement  float64   `json:"engagement"`
	Reach       float64   `json:"reach"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// AudioSignal is one trending audio track observed for a niche.
type AudioSignal struct {
	Title       string    `json:"title"`
	Plays       int64     `json:"plays"`
	Trend       string    `json:"trend"`
	Duration    int       `json:"duration"` // seconds
	Genre       string    `json:"genre"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// InfluencerSignal is one top account observed for a niche.
type InfluencerSignal struct {
	Username    string    `json:"username"`
	Followers   int64     `json:"followers"`
	Engagement  float64   `json:"engagement"` // percentage
	Posts       int64     `json:"posts"`
	Category    string    `json:"category"`
	Verified    bool      `json:"verified"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ViralPostSignal is one high-performing post observed for a niche.
// ID is unique within the post's source, not globally.
type ViralPostSignal struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Caption  string    `json:"caption"`
	Likes    int64     `json:"likes"`
	Comments int64     `json:"comments"`
	Shares   int64     `json:"shares"`
	Views    int64     `json:"views,omitempty"`
	Hashtags []string  `json:"hashtags"`
	Audio    string    `json:"audio,omitempty"`
	PostedAt time.Time `json:"postedAt"`
	Category string    `json:"category"`
}

// NicheAggregate is the complete analysis of one niche: the four collected
// signal lists plus derived guidance fields. Exactly one aggregate exists per
// normalized niche key; every refresh replaces the fields wholesale and
// resets LastUpdated, so LastUpdated is monotonically non-decreasing for a
// given niche.
type NicheAggregate struct {
	Niche            string             `json:"niche"`
	TrendingHashtags []HashtagSignal    `json:"trendingHashtags"`
	TrendingAudios   []AudioSignal      `json:"trendingAudios"`
	TopInfluencers   []InfluencerSignal `json:"topInfluencers"`
	ViralPosts       []ViralPostSignal  `json:"viralPosts"`
	BestPostingTimes []string           `json:"bestPostingTimes"`
	ContentIdeas     []string           `json:"contentIdeas"`
	MarketSize       int64              `json:"marketSize"`
	Competition      Competition        `json:"competition"`
	LastUpdated      time.Time          `json:"lastUpdated"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}
