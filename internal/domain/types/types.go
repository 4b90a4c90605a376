// Package types contains read shapes returned by reports and the HTTP API.
package types

import (
	"time"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
)

// Entry is one row of a leaderboard or member listing.
type Entry struct {
	Rank       int     `json:"rank"`
	MemberID   string  `json:"member_id"`
	Group      string  `json:"group"`
	Region     string  `json:"region"`
	Merit      float64 `json:"merit"`
	Power      float64 `json:"power"`
	Efficiency float64 `json:"efficiency"`
}

// EntryOf builds an Entry from a snapshot row.
func EntryOf(s *model.Snapshot) Entry {
	return Entry{
		Rank:       s.Rank,
		MemberID:   s.MemberID,
		Group:      s.Group,
		Region:     s.Region,
		Merit:      s.Merit,
		Power:      s.Power,
		Efficiency: s.Efficiency,
	}
}

// Overview holds the headline KPIs of the latest snapshot.
type Overview struct {
	RecordedAt     time.Time `json:"recorded_at"`
	TotalMerit     float64   `json:"total_merit"`
	TotalPower     float64   `json:"total_power"`
	ActiveMembers  int       `json:"active_members"`
	MeanEfficiency float64   `json:"mean_efficiency"`
}

// GroupStat summarizes one group of the latest snapshot.
type GroupStat struct {
	Group      string  `json:"group"`
	Members    int     `json:"members"`
	TotalMerit float64 `json:"total_merit"`
	AvgMerit   float64 `json:"avg_merit"`
	TotalPower float64 `json:"total_power"`
	AvgPower   float64 `json:"avg_power"`
}

// RegionStat counts members per region.
type RegionStat struct {
	Region    string `json:"region"`
	Members   int    `json:"members"`
	Frontline bool   `json:"frontline"`
}

// FrontlineSplit tells how much of the population sits in frontline regions.
type FrontlineSplit struct {
	InFront  int     `json:"in_front"`
	Stranded int     `json:"stranded"`
	Ratio    float64 `json:"ratio"` // percent in front
	Members  []Entry `json:"stranded_members"`
}

// Tier buckets a member by rank percentile.
type Tier string

// Tiers, from strongest to weakest.
const (
	TierElite  Tier = "elite"
	TierFront  Tier = "front"
	TierNormal Tier = "normal"
)

// Bounds are the fixed chart domains derived from global extrema.
type Bounds struct {
	MeritVelocity [2]float64 `json:"merit_velocity"`
	PowerVelocity [2]float64 `json:"power_velocity"`
}

// Profile is the drill-down of one member.
type Profile struct {
	Member     Entry                  `json:"member"`
	Population int                    `json:"population"`
	Tier       Tier                   `json:"tier"`
	History    []model.VelocityRecord `json:"history"`
	Extrema    model.Extrema          `json:"extrema"`
	Bounds     Bounds                 `json:"bounds"`
}

// SkippedFile names a file left out of the dataset and why.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// LoadStatus describes the last load of the snapshot directory.
type LoadStatus struct {
	Files    []string      `json:"files"`
	Rows     int           `json:"rows"`
	Members  int           `json:"members"`
	LatestAt time.Time     `json:"latest_at"`
	Skipped  []SkippedFile `json:"skipped"`
}

// Upload outcomes.
const (
	UploadAccepted  = "accepted"
	UploadDuplicate = "duplicate"
	UploadRejected  = "rejected"
)

// UploadResult reports what happened to one uploaded file.
type UploadResult struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// OverviewReport is the KPI header plus the group summary.
type OverviewReport struct {
	Overview
	Groups []GroupStat `json:"groups"`
}

// RegionReport is the region distribution and the frontline split.
type RegionReport struct {
	Regions   []RegionStat   `json:"regions"`
	Frontline FrontlineSplit `json:"frontline"`
}
