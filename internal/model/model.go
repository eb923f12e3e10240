package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&DirectorInfo{},
	&Race{},
	&RacerResult{},
	&RaceEvent{},
	&TensionSample{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// DirectorInfo describes the installation writing to the database
type DirectorInfo struct {
	gorm.Model
	ServiceName   string `json:"serviceName" gorm:"size:127"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*DirectorInfo) TableName() string {
	return "director_infos"
}

////////////////////////
// RACE MODELS
////////////////////////

// Race is one recorded race, keyed by the id assigned at race start
type Race struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	StartedAt   time.Time  `json:"startedAt" gorm:"index:idx_race_started_at"`
	EndedAt     *time.Time `json:"endedAt"`
	TotalLaps   int        `json:"totalLaps"`
	TrackLength float64    `json:"trackLength"`
	Style       string     `json:"style" gorm:"size:32"`
	Difficulty  string     `json:"difficulty" gorm:"size:64"`
	RaceTime    float64    `json:"raceTime"`
	// Statistics holds the final core.RaceStatistics
	Statistics  datatypes.JSON `json:"statistics"`
	FinishOrder datatypes.JSON `json:"finishOrder"`

	Racers []RacerResult `json:"racers" gorm:"foreignKey:RaceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Events []RaceEvent   `json:"events" gorm:"foreignKey:RaceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Race) TableName() string {
	return "races"
}

// RacerResult is a racer's registration and, once the race ended, its outcome
type RacerResult struct {
	ID               uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID           string  `json:"raceId" gorm:"size:36;uniqueIndex:idx_racer_result_race_racer"`
	RacerID          string  `json:"racerId" gorm:"size:36;uniqueIndex:idx_racer_result_race_racer"`
	Name             string  `json:"name" gorm:"size:64"`
	IsPlayer         bool    `json:"isPlayer"`
	StartingPosition int     `json:"startingPosition"`
	Position         int     `json:"position"`
	FinishPosition   int     `json:"finishPosition"`
	Finished         bool    `json:"finished"`
	FinishTime       float64 `json:"finishTime"`
	Wrecked          bool    `json:"wrecked"`
	BestPosition     int     `json:"bestPosition"`
	WorstPosition    int     `json:"worstPosition"`
	PositionChanges  int     `json:"positionChanges"`
	Takedowns        int     `json:"takedowns"`
	TimesWrecked     int     `json:"timesWrecked"`
	MaxSpeed         float64 `json:"maxSpeed"`
	SkillRating      float64 `json:"skillRating"`
	Aggression       float64 `json:"aggression"`
	Rival            bool    `json:"rival"`
}

func (*RacerResult) TableName() string {
	return "racer_results"
}

// RaceEvent is an entry of the race's event log
type RaceEvent struct {
	ID          uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID      string  `json:"raceId" gorm:"size:36;index:idx_race_event_race_id"`
	Seq         uint64  `json:"seq"`
	Moment      string  `json:"moment" gorm:"size:32"`
	Timestamp   float64 `json:"timestamp"`
	PrimaryID   string  `json:"primaryId" gorm:"size:36"`
	SecondaryID string  `json:"secondaryId" gorm:"size:36"`
	Lap         int     `json:"lap"`
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description" gorm:"size:255"`
}

func (*RaceEvent) TableName() string {
	return "race_events"
}

// TensionSample records a tension level change
type TensionSample struct {
	ID       uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	RaceID   string  `json:"raceId" gorm:"size:36;index:idx_tension_sample_race_id"`
	RaceTime float64 `json:"raceTime"`
	Level    string  `json:"level" gorm:"size:16"`
	Score    float64 `json:"score"`
}

func (*TensionSample) TableName() string {
	return "tension_samples"
}
