package config

const (
	// TopicIndexTask is the NSQ topic carrying one indexing task per source.
	TopicIndexTask = "index.task"

	// ChannelIndexer is the consumer channel for the indexing worker.
	ChannelIndexer = "indexer"
)
