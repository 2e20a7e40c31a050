package domain

// Outcome is the result of processing one queue message.
type Outcome string

const (
	OutcomeEmpty               Outcome = "empty"
	OutcomeDroppedMalformed    Outcome = "dropped_malformed"
	OutcomeDroppedOrphan       Outcome = "dropped_orphan"
	OutcomeDroppedNoTranscript Outcome = "dropped_no_transcript"
	OutcomeAlreadyNotified     Outcome = "already_notified"
	OutcomeFannedOut           Outcome = "fanned_out"
	OutcomeRetryScheduled      Outcome = "retry_scheduled"
	OutcomeDeadLettered        Outcome = "dead_lettered"
)

// Terminal reports whether the message is acknowledged after this outcome.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeDroppedMalformed, OutcomeDroppedOrphan, OutcomeDroppedNoTranscript,
		OutcomeAlreadyNotified, OutcomeFannedOut:
		return true
	}
	return false
}
