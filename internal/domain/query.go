package domain

// Row is one result row, keyed by column name. Column order is carried
// separately on QueryResult.Columns.
type Row map[string]interface{}

// QueryResult is the bounded output of an executed statement.
type QueryResult struct {
	Columns []string `json:"columns"`
	Items   []Row    `json:"items"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Count   int      `json:"count"`
}
