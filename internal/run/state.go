package run

// State is a pipeline stage. Stages execute strictly in sequence; the only
// backward edge is APPLYING_PATCH returning to GENERATING_PATCH on a failed
// apply, bounded by the retry budget.
type State string

const (
	StateIngesting       State = "INGESTING"
	StateRetrieving      State = "RETRIEVING"
	StatePlanning        State = "PLANNING"
	StateGeneratingPatch State = "GENERATING_PATCH"
	StateApplyingPatch   State = "APPLYING_PATCH"
	StateRunningChecks   State = "RUNNING_CHECKS"
	StateScoring         State = "SCORING"
	StateExplaining      State = "EXPLAINING"
	StateFinalizing      State = "FINALIZING"

	// stateDone is the internal post-terminal marker that stops the loop.
	stateDone State = ""
)
