package pipeline

import "time"

const (
	commitMaxAttempts = 3
	commitBaseDelay   = 500 * time.Millisecond
	commitTimeout     = 30 * time.Second

	detailNoCategory      = "no category matched"
	detailExcludeKeyword  = "exclude keyword matched"
	detailDuplicate       = "near-duplicate of published item"
	detailNotSelected     = "not selected by model"
	detailModeratorReject = "rejected by moderator"
	detailEmbeddingFailed = "embedding failed"
	detailSelectionFailed = "selection failed"
	detailModerationBusy  = "moderation session already pending"
	detailPublishFailed   = "publish failed"
	detailInterrupted     = "run interrupted"
)
