// Package config holds the typed options record every engine, the EM
// learner, and cmd's flag parsing share. Design Notes (§9) flagged the
// original's MER_ENUM string-keyed option bag as worth redesigning; this
// is that redesign - a plain struct instead of a map of strings.
package config

import (
	"time"

	"github.com/merlin-pgm/merlin/model"
)

// LBPSchedule selects how loopy belief propagation picks the next message
// to send.
type LBPSchedule int

// Supported LBP schedules.
const (
	ScheduleFixed LBPSchedule = iota
	ScheduleFlood
	SchedulePriority
)

// InitKind selects how EM seeds the parameters it will refine.
type InitKind int

// Supported EM initializations.
const (
	InitUniform InitKind = iota
	InitRandom
	InitModel // keep the model's existing CPTs as the starting point
)

// Options is the full set of knobs every component in this repo reads
// from, populated by cmd's flag parsing (or directly by tests).
type Options struct {
	Algorithm string // "bte", "cte", "wmb", "ijgp", "jglp", "lbp", "gibbs"
	Task      string // "PR", "MAR", "MAP", "MMAP"

	Order     model.OrderMethod
	OrderIter int // number of random orders to try when Order == model.Random

	IBound int // mini-bucket / join-graph scope-size bound (WMB, IJGP, JGLP)

	Iter        int           // EM iteration cap (message-passing engines read StopIter)
	TimeLimit   time.Duration // wall-clock budget; zero means unbounded
	SampleCount int           // Gibbs sample budget

	Schedule LBPSchedule
	Distance model.DistanceKind
	StopIter int
	StopObj  float64
	StopMsg  float64

	Infer     string // which engine EM's E-step should run ("bte", "cte", "wmb")
	Init      InitKind
	Threshold float64 // EM log-likelihood delta stopping tolerance

	Alpha float64 // JGLP / WMB moment-matching blend weight

	Seed int64

	Debug   bool
	Verbose bool
}

// Default returns a reasonably safe baseline, overridden field by field by
// cmd's flag parsing.
func Default() *Options {
	return &Options{
		Algorithm:   "bte",
		Task:        "PR",
		Order:       model.MinFill,
		OrderIter:   1,
		IBound:      10,
		Iter:        20,
		SampleCount: 1000,
		Schedule:    ScheduleFlood,
		Distance:    model.L1,
		StopIter:    20,
		StopObj:     1e-6,
		StopMsg:     1e-6,
		Infer:       "bte",
		Init:        InitUniform,
		Threshold:   1e-4,
		Alpha:       0.5,
		Seed:        12345,
	}
}
