package field

// Event topics published by the Field module.
const (
	TopicReadingIngested = "field.reading.ingested"
	TopicPlotCreated     = "field.plot.created"
	TopicPlotDeleted     = "field.plot.deleted"
)
