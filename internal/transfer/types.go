// Copyright (c) 2026 Netskope, Inc. All rights reserved.

// Package transfer runs one list, select and transfer cycle from an S3 bucket
// into ADLS, staging files in a scratch directory that is removed on every
// exit path.
//
// A run moves through Idle, Listing, Selecting, Transferring, Cleaned and
// then Done, or Failed when the run cannot proceed as a whole. Within
// Transferring each file passes Fetched, optionally Converted, Uploaded and
// optionally Verified. A failing file is recorded and the run continues.
package transfer

import (
	"time"

	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
)

// State is the pipeline state.
type State int

const (
	StateIdle State = iota
	StateListing
	StateSelecting
	StateTransferring
	StateCleaned
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListing:
		return "listing"
	case StateSelecting:
		return "selecting"
	case StateTransferring:
		return "transferring"
	case StateCleaned:
		return "cleaned"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage is a completed step of a single file's transfer.
type Stage string

const (
	StageFetched   Stage = "fetched"
	StageConverted Stage = "converted"
	StageUploaded  Stage = "uploaded"
	StageVerified  Stage = "verified"
)

// Event reports progress. File events carry Key, Index (1-based) and Total;
// Stage is empty when the file failed, in which case Err is set.
type Event struct {
	State State
	Stage Stage
	Index int
	Total int
	Key   string
	Err   error
}

// Item is one selected name, resolved against a listing.
type Item struct {
	Key    string
	Object s3.Object
	Found  bool
}

// Selection is the ordered, de-duplicated set of files chosen for a run.
type Selection struct {
	Items []Item
}

// Select resolves operator-chosen keys against listing. Order is kept and
// repeats are dropped. Names missing from the listing are kept as unresolved
// items and fail with a not-found outcome when run.
func Select(listing []s3.Object, keys []string) Selection {
	byKey := make(map[string]s3.Object, len(listing))
	for _, obj := range listing {
		byKey[obj.Key] = obj
	}

	seen := make(map[string]bool, len(keys))
	var sel Selection
	for _, key := range keys {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		obj, ok := byKey[key]
		sel.Items = append(sel.Items, Item{Key: key, Object: obj, Found: ok})
	}
	return sel
}

// SelectAll selects every listed object in listing order.
func SelectAll(listing []s3.Object) Selection {
	sel := Selection{Items: make([]Item, 0, len(listing))}
	for _, obj := range listing {
		sel.Items = append(sel.Items, Item{Key: obj.Key, Object: obj, Found: true})
	}
	return sel
}

// Len returns the number of selected files.
func (s Selection) Len() int {
	return len(s.Items)
}

// ChecksumStatus is the result of advisory verification.
type ChecksumStatus string

const (
	ChecksumSkipped     ChecksumStatus = ""
	ChecksumMatch       ChecksumStatus = "match"
	ChecksumMismatch    ChecksumStatus = "mismatch"
	ChecksumUnavailable ChecksumStatus = "unavailable"
)

// Outcome is the result for one selected file.
type Outcome struct {
	Key        string
	Object     s3.Object
	RemotePath string
	Stages     []Stage
	Converted  bool

	Checksum     ChecksumStatus
	LocalDigest  string
	RemoteDigest string
	// ChecksumErr explains a mismatch or why verification could not run. It
	// does not make the outcome a failure.
	ChecksumErr error

	Err error
}

// Succeeded reports whether the file reached the destination.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// ErrorKind names the failure class, or is empty on success.
func (o Outcome) ErrorKind() string {
	if o.Err == nil {
		return ""
	}
	return xfererr.KindOf(o.Err).String()
}

// Report collects every outcome of a run.
type Report struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	ScratchDir string
	Outcomes   []Outcome
	// Err is set when the run failed as a whole.
	Err error
}

func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

func (r *Report) ChecksumMismatches() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Checksum == ChecksumMismatch {
			n++
		}
	}
	return n
}

// OK reports whether the run completed and every file succeeded.
func (r *Report) OK() bool {
	return r.Err == nil && r.Failed() == 0
}
