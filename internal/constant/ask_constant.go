package constant

// SSE event names emitted by the streaming generate-SQL endpoint. The frame
// sequence mirrors the asking process stages, culminating in a success frame
// carrying the generated SQL.
const (
	SQLGenerationStart         = "SQL_GENERATION_START"
	SQLGenerationUnderstanding = "SQL_GENERATION_UNDERSTANDING"
	SQLGenerationSearching     = "SQL_GENERATION_SEARCHING"
	SQLGenerationPlanning      = "SQL_GENERATION_PLANNING"
	SQLGenerationGenerating    = "SQL_GENERATION_GENERATING"
	SQLGenerationCorrecting    = "SQL_GENERATION_CORRECTING"
	SQLGenerationFinished      = "SQL_GENERATION_FINISHED"
	SQLGenerationFailed        = "SQL_GENERATION_FAILED"
	SQLGenerationStopped       = "SQL_GENERATION_STOPPED"
	SQLGenerationSuccess       = "SQL_GENERATION_SUCCESS"
)

// Maximum number of prior thread questions used to seed recommended-questions
// generation, not counting the current one.
const RecommendSeedQuestions = 5
