package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions consumed by the ent migrator. Column order matters:
// indexes and foreign keys reference columns by position.
var (
	// QuestionsColumns holds the columns for the "questions" table.
	QuestionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "position", Type: field.TypeInt},
		{Name: "category", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647},
	}
	// QuestionsTable holds the schema information for the "questions" table.
	QuestionsTable = &schema.Table{
		Name:       "questions",
		Columns:    QuestionsColumns,
		PrimaryKey: []*schema.Column{QuestionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_position", Unique: false, Columns: []*schema.Column{QuestionsColumns[1]}},
		},
	}

	// AnswerOptionsColumns holds the columns for the "answer_options" table.
	AnswerOptionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "option_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "label", Type: field.TypeString, Size: 2147483647},
		{Name: "weights", Type: field.TypeString, Size: 2147483647, Default: "{}"},
		{Name: "question_id", Type: field.TypeString},
	}
	// AnswerOptionsTable holds the schema information for the "answer_options" table.
	AnswerOptionsTable = &schema.Table{
		Name:       "answer_options",
		Columns:    AnswerOptionsColumns,
		PrimaryKey: []*schema.Column{AnswerOptionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "answer_options_questions_options",
				Columns:    []*schema.Column{AnswerOptionsColumns[5]},
				RefColumns: []*schema.Column{QuestionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "answeroption_question_id_option_id", Unique: true, Columns: []*schema.Column{AnswerOptionsColumns[5], AnswerOptionsColumns[1]}},
		},
	}

	// LLMRequestEventsColumns holds the columns for the "llm_request_events" table.
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "operation", Type: field.TypeString},
		{Name: "outcome", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "cost_usd", Type: field.TypeFloat64, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	// LLMRequestEventsTable holds the schema information for the "llm_request_events" table.
	LLMRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Unique: false, Columns: []*schema.Column{LLMRequestEventsColumns[2]}},
			{Name: "llmrequestevent_provider", Unique: false, Columns: []*schema.Column{LLMRequestEventsColumns[3]}},
			{Name: "llmrequestevent_operation", Unique: false, Columns: []*schema.Column{LLMRequestEventsColumns[5]}},
			{Name: "llmrequestevent_outcome", Unique: false, Columns: []*schema.Column{LLMRequestEventsColumns[6]}},
		},
	}

	// OrchestrationEventsColumns holds the columns for the "orchestration_events" table.
	OrchestrationEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "operation", Type: field.TypeString},
		{Name: "identity", Type: field.TypeString},
		{Name: "source", Type: field.TypeString, Default: ""},
		{Name: "success", Type: field.TypeBool},
		{Name: "degraded", Type: field.TypeBool, Default: false},
		{Name: "kind", Type: field.TypeString, Default: ""},
		{Name: "fingerprint", Type: field.TypeString, Default: ""},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
	}
	// OrchestrationEventsTable holds the schema information for the "orchestration_events" table.
	OrchestrationEventsTable = &schema.Table{
		Name:       "orchestration_events",
		Columns:    OrchestrationEventsColumns,
		PrimaryKey: []*schema.Column{OrchestrationEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "orchestrationevent_timestamp", Unique: false, Columns: []*schema.Column{OrchestrationEventsColumns[2]}},
			{Name: "orchestrationevent_operation", Unique: false, Columns: []*schema.Column{OrchestrationEventsColumns[3]}},
			{Name: "orchestrationevent_identity", Unique: false, Columns: []*schema.Column{OrchestrationEventsColumns[4]}},
		},
	}

	// EventSequenceColumns holds the single-row counter shared by the event tables.
	EventSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "last_value", Type: field.TypeInt64, Default: 0},
	}
	// EventSequenceTable holds the schema information for the "event_sequence" table.
	EventSequenceTable = &schema.Table{
		Name:       "event_sequence",
		Columns:    EventSequenceColumns,
		PrimaryKey: []*schema.Column{EventSequenceColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		QuestionsTable,
		AnswerOptionsTable,
		LLMRequestEventsTable,
		OrchestrationEventsTable,
		EventSequenceTable,
	}
)

func init() {
	AnswerOptionsTable.ForeignKeys[0].RefTable = QuestionsTable
}
