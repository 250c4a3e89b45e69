package horoscope

import "context"

// Provenance records which resolver produced a message body.
type Provenance string

const (
	ProvenanceCorpus     Provenance = "corpus"
	ProvenanceGenerative Provenance = "generative"
	ProvenanceProcedural Provenance = "procedural"
)

// OutcomeStatus classifies the result of a single resolver attempt.
// "Absent" is an expected condition (no authored entry for the date), not an
// error; "Failed" covers timeouts, transport errors and malformed responses.
type OutcomeStatus int

const (
	StatusResolved OutcomeStatus = iota
	StatusAbsent
	StatusFailed
)

// Outcome is the explicit result of one resolver attempt.
type Outcome struct {
	Status     OutcomeStatus
	Text       string
	Provenance Provenance
	Err        error // set only when Status == StatusFailed
}

// Resolved builds a successful outcome carrying the rendered message text.
func Resolved(p Provenance, text string) Outcome {
	return Outcome{Status: StatusResolved, Provenance: p, Text: text}
}

// Absent reports that the resolver has no entry for the requested key.
func Absent() Outcome {
	return Outcome{Status: StatusAbsent}
}

// Failed reports a soft failure; the chain logs it and falls through.
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// Resolver produces a message body for a (sign, ISO date) pair.
type Resolver interface {
	Resolve(ctx context.Context, sign Sign, isoDate string) Outcome
}
