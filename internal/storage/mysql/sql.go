package mysql

const leadsTable = "lead_submissions"

const insertLeadSQL = `
INSERT INTO lead_submissions
  (token, email, location, check_in, check_out, hotel_count, status, upstream_status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status          = VALUES(status),
  upstream_status = VALUES(upstream_status)
`

var leadColumns = []string{
	"token",
	"email",
	"location",
	"check_in",
	"check_out",
	"hotel_count",
	"status",
	"upstream_status",
	"created_at",
}
