package config

const (
	// TopicEmbedWake is the NSQ topic that nudges the embedding worker to
	// drain the job queue after ingestion enqueues new jobs.
	TopicEmbedWake = "embed.wake"
)
