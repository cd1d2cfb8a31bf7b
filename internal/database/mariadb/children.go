package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/database"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// LegacyChild is one row of the legacy children table.
type LegacyChild struct {
	ChildName      string
	FatherName     string
	IdentityNumber string
	MissingPlace   string
	DocumentNumber string
	DocumentDate   sql.NullTime
	MissingDate    time.Time
	ImageURL       string
	CreatedAt      sql.NullTime
}

// ToPerson converts the row into a registry record. Descriptors are not part
// of the legacy schema and are computed after import.
func (c *LegacyChild) ToPerson() database.StoredPerson {
	p := database.StoredPerson{
		Name:           strings.TrimSpace(c.ChildName),
		FatherName:     strings.TrimSpace(c.FatherName),
		NationalID:     strings.TrimSpace(c.IdentityNumber),
		LostLocation:   strings.TrimSpace(c.MissingPlace),
		LostDate:       c.MissingDate,
		DocumentNumber: strings.TrimSpace(c.DocumentNumber),
		ImageURL:       strings.TrimSpace(c.ImageURL),
		Status:         database.StatusMissing,
	}
	if c.DocumentDate.Valid {
		d := c.DocumentDate.Time
		p.DocumentDate = &d
	}
	if c.CreatedAt.Valid {
		p.RegistrationDate = c.CreatedAt.Time
	}
	return p
}

// ReadChildren returns every row of table ordered by creation.
func (p *Pool) ReadChildren(ctx context.Context, table string) ([]LegacyChild, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid legacy table name %q", table)
	}

	//nolint:gosec // table name is validated above
	query := fmt.Sprintf(`
		SELECT childName, fatherName, identityNumber, missingPlace, documentNumber,
			documentDate, missingDate, imageUrl, createdAt
		FROM %s
		ORDER BY createdAt, identityNumber
	`, "`"+table+"`")

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query legacy children: %w", err)
	}
	defer rows.Close()

	var children []LegacyChild
	for rows.Next() {
		var c LegacyChild
		var docNumber, imageURL sql.NullString
		if err := rows.Scan(
			&c.ChildName, &c.FatherName, &c.IdentityNumber, &c.MissingPlace, &docNumber,
			&c.DocumentDate, &c.MissingDate, &imageURL, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		c.DocumentNumber = docNumber.String
		c.ImageURL = imageURL.String
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return children, nil
}
