package constants

const (
	// StroopScale is the number of ledger minor units (stroops) per XLM.
	StroopScale = 10_000_000

	// PlatformFeePercent is the marketplace cut taken on job completion.
	PlatformFeePercent = 5
)

// celery task names
const TASK_EXECUTE_JOB string = "worker.execute_job"

// redis key prefixes
const REDIS_EXEC_PREFIX = "EXEC:"

// ExecStateTTL bounds how long a pending execution result (transcript,
// raw result, locator) is retained while waiting for finalization.
// After expiry the job must be re-run.
const ExecStateTTL = 24 * 60 * 60

const (
	// NotificationLimit is the maximum number of retained notifications.
	NotificationLimit = 5
	// NotificationTTLSeconds is how long a notification survives.
	NotificationTTLSeconds = 10
)

const TranscriptDirName = "transcripts"

// locator schemes accepted as already-stored result references
const IpfsScheme = "ipfs://"
