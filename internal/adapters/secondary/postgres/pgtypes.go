package postgres

import "github.com/jackc/pgx/v5/pgtype"

// toText converts a string to a pgtype.Text. An empty string is stored as NULL.
func toText(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// textOrEmpty converts a pgtype.Text to a string. NULL becomes "".
func textOrEmpty(text pgtype.Text) string {
	if text.Valid {
		return text.String
	}
	return ""
}
