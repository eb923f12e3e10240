// Package feed reads recorded race telemetry and replays it into a director.
//
// A feed is JSON lines, one record per line. Blank lines and lines starting
// with '#' are skipped. Racers are referred to by the feed's own Ref names,
// which the replayer maps to director ids on registration.
package feed

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record types.
const (
	TypeInit       = "init"
	TypeRegister   = "register"
	TypeUnregister = "unregister"
	TypeStart      = "start"
	TypeState      = "state"
	TypeLap        = "lap"
	TypeLapTime    = "lap_time"
	TypePerfectLap = "perfect_lap"
	TypeNearMiss   = "near_miss"
	TypeTakedown   = "takedown"
	TypeMistake    = "mistake"
	TypeRival      = "rival"
	TypeWreck      = "wreck"
	TypeFinish     = "finish"
	TypeTick       = "tick"
	TypeEnd        = "end"
	TypeStyle      = "style"
	TypeDifficulty = "difficulty"
	TypeAggression = "aggression"
	TypeSkill      = "skill"
)

// maxLine bounds a single record.
const maxLine = 1 << 20

// Record is one line of a feed. Only the fields its type uses are set.
type Record struct {
	Type string `json:"t"`
	Ref  string `json:"ref,omitempty"`

	// register
	Name   string `json:"name,omitempty"`
	Player bool   `json:"player,omitempty"`
	Start  int    `json:"start,omitempty"`

	// init
	Laps   int     `json:"laps,omitempty"`
	Length float64 `json:"length,omitempty"`

	// state
	Position int     `json:"pos,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Progress float64 `json:"progress,omitempty"`

	Lap      int     `json:"lap,omitempty"`
	Time     float64 `json:"time,omitempty"`
	Victim   string  `json:"victim,omitempty"`
	Severity float64 `json:"severity,omitempty"`
	Rival    bool    `json:"rival,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Style    string  `json:"style,omitempty"`
	Level    string  `json:"level,omitempty"`
	DT       float64 `json:"dt,omitempty"`
}

// LineError reports a malformed record.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("feed line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ErrMissingType is returned for a record without a "t" field.
var ErrMissingType = errors.New("record has no type")

// Reader decodes records from a JSON-lines stream.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Reader{sc: sc}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimSpace(r.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return rec, &LineError{Line: r.line, Err: err}
		}
		if rec.Type == "" {
			return rec, &LineError{Line: r.line, Err: ErrMissingType}
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("reading feed: %w", err)
	}
	return Record{}, io.EOF
}

// Line is the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}
