package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const personColumns = `id, name, father_name, national_id, lost_location, lost_date,
	document_number, document_date, image_url, registration_date, gender, age,
	last_seen_date, status, height, weight, eye_color, hair_color,
	distinguishing_features, contact_person, contact_phone, reporter_id,
	additional_info, descriptor, descriptor_source, created_at, updated_at`

const (
	pqUniqueViolation       = "23505"
	nationalIDConstraint    = "persons_national_id_key"
	hnswMinSearchCandidates = 100
	hnswRebuildTimeout      = 5 * time.Minute
)

// PersonRepository stores the registry in PostgreSQL. Descriptors live in a
// pgvector column; an optional in-memory HNSW graph accelerates FindSimilar.
type PersonRepository struct {
	pool *Pool
	now  func() time.Time

	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string
	hnswVersion   registryVersion
	hnswMu        sync.RWMutex
	rebuilding    atomic.Bool
}

// registryVersion identifies the stored descriptors. Inserting, deleting or
// changing a descriptor moves the count or the latest update time, including
// writes made by other processes sharing the database.
type registryVersion struct {
	count   int
	updated time.Time
}

func (v registryVersion) equal(o registryVersion) bool {
	return v.count == o.count && v.updated.Equal(o.updated)
}

// NewPersonRepository creates a repository on pool.
func NewPersonRepository(pool *Pool) *PersonRepository {
	return &PersonRepository{pool: pool, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*database.StoredPerson, error) {
	var (
		p       database.StoredPerson
		docDate sql.NullTime
		gender  string
		status  string
		source  string
		info    []byte
		desc    sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.FatherName, &p.NationalID, &p.LostLocation, &p.LostDate,
		&p.DocumentNumber, &docDate, &p.ImageURL, &p.RegistrationDate, &gender, &p.Age,
		&p.LastSeenDate, &status, &p.Height, &p.Weight, &p.EyeColor, &p.HairColor,
		&p.DistinguishingFeatures, &p.ContactPerson, &p.ContactPhone, &p.ReporterID,
		&info, &desc, &source, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Gender = database.Gender(gender)
	p.Status = database.Status(status)
	p.DescriptorSource = descriptor.Source(source)
	if docDate.Valid {
		d := docDate.Time
		p.DocumentDate = &d
	}
	if len(info) > 0 && string(info) != "{}" {
		if err := json.Unmarshal(info, &p.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("decode additional info of %s: %w", p.ID, err)
		}
	}
	if desc.Valid {
		var v pgvector.Vector
		if err := v.Scan([]byte(desc.String)); err != nil {
			return nil, fmt.Errorf("decode descriptor of %s: %w", p.ID, err)
		}
		p.Descriptor = v.Slice()
	}
	return &p, nil
}

func scanPersons(rows *sql.Rows) ([]database.StoredPerson, error) {
	defer rows.Close()

	persons := make([]database.StoredPerson, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

// descriptorArg converts a descriptor into a query argument; nil stores NULL.
func descriptorArg(desc []float32) any {
	if len(desc) == 0 {
		return nil
	}
	return pgvector.NewVector(desc)
}

func additionalInfoArg(info map[string]string) (string, error) {
	if len(info) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("encode additional info: %w", err)
	}
	return string(b), nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// mapWriteError translates constraint violations into registry errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		if pqErr.Constraint == nationalIDConstraint {
			return database.ErrDuplicateNationalID
		}
		return fmt.Errorf("person already exists: %w", err)
	}
	return err
}

// Get retrieves a person by ID, returns nil if not found
func (r *PersonRepository) Get(ctx context.Context, id string) (*database.StoredPerson, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

// GetByNationalID retrieves a person by national id, returns nil if not found
func (r *PersonRepository) GetByNationalID(ctx context.Context, nationalID string) (*database.StoredPerson, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM persons WHERE national_id = $1`, nationalID)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person by national id: %w", err)
	}
	return p, nil
}

// List returns every person in registration order
func (r *PersonRepository) List(ctx context.Context) ([]database.StoredPerson, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM persons ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return scanPersons(rows)
}

// Count returns the number of persons
func (r *PersonRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM persons`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

// filterClause translates the predicates PostgreSQL can evaluate exactly.
// The location predicate is diacritic-insensitive and is applied afterwards.
func filterClause(f database.SearchFilters) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AgeRange != nil {
		conds = append(conds, fmt.Sprintf("age BETWEEN %s AND %s", arg(f.AgeRange.Min), arg(f.AgeRange.Max)))
	}
	if f.Gender != "" {
		conds = append(conds, "gender = "+arg(string(f.Gender)))
	}
	if f.DateRange != nil {
		if !f.DateRange.Start.IsZero() {
			conds = append(conds, "lost_date >= "+arg(f.DateRange.Start.Format(constants.DateLayout))+"::date")
		}
		if !f.DateRange.End.IsZero() {
			conds = append(conds, "lost_date <= "+arg(f.DateRange.End.Format(constants.DateLayout))+"::date")
		}
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Search returns the persons matching filters
func (r *PersonRepository) Search(ctx context.Context, filters database.SearchFilters) ([]database.StoredPerson, error) {
	where, args := filterClause(filters)
	rows, err := r.pool.Query(ctx, `SELECT `+personColumns+` FROM persons`+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	persons, err := scanPersons(rows)
	if err != nil {
		return nil, err
	}
	if filters.Location == "" {
		return persons, nil
	}
	return database.Filter(persons, database.SearchFilters{Location: filters.Location}), nil
}

// FindSimilar ranks persons by descriptor similarity. Candidates come from
// the HNSW graph when it is current, otherwise from a pgvector distance scan;
// either way they are re-scored exactly before thresholding.
func (r *PersonRepository) FindSimilar(ctx context.Context, query []float32, opts database.MatchOptions) ([]database.Match, error) {
	if opts.SynthesizeMissing {
		persons, err := r.List(ctx)
		if err != nil {
			return nil, err
		}
		return database.Rank(query, persons, opts), nil
	}

	// Nothing can score above zero against these.
	if len(query) != descriptor.Dim || descriptor.Score(query, query) == 0 {
		return []database.Match{}, nil
	}

	if idx := r.activeIndex(); idx != nil && r.indexCurrent(ctx) {
		return r.findSimilarHNSW(ctx, idx, query, opts)
	}
	return r.findSimilarPostgres(ctx, query, opts)
}

// indexCurrent reports whether the HNSW index was built from the descriptors
// stored now. A stale index schedules a rebuild; until it lands, queries use
// the pgvector scan.
func (r *PersonRepository) indexCurrent(ctx context.Context) bool {
	current, err := r.registryVersion(ctx)
	if err != nil {
		return false
	}
	r.hnswMu.RLock()
	built := r.hnswVersion
	r.hnswMu.RUnlock()
	if current.equal(built) {
		return true
	}
	r.scheduleRebuild()
	return false
}

func (r *PersonRepository) registryVersion(ctx context.Context) (registryVersion, error) {
	var (
		v       registryVersion
		updated sql.NullTime
	)
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(updated_at) FROM persons WHERE descriptor IS NOT NULL`,
	).Scan(&v.count, &updated)
	if err != nil {
		return v, fmt.Errorf("read registry version: %w", err)
	}
	if updated.Valid {
		v.updated = updated.Time.UTC()
	}
	return v, nil
}

func (r *PersonRepository) scheduleRebuild() {
	if !r.rebuilding.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer r.rebuilding.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), hnswRebuildTimeout)
		defer cancel()
		if err := r.buildHNSW(ctx); err != nil {
			fmt.Printf("Warning: failed to rebuild stale HNSW index: %v\n", err)
		}
	}()
}

func (r *PersonRepository) findSimilarPostgres(ctx context.Context, query []float32, opts database.MatchOptions) ([]database.Match, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // read-only transaction

	rows, err := tx.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE descriptor IS NOT NULL AND descriptor <=> $1 < $2
		ORDER BY seq
	`, pgvector.NewVector(query), database.ScoreToDistance(opts.Threshold))
	if err != nil {
		return nil, fmt.Errorf("find similar persons: %w", err)
	}
	persons, err := scanPersons(rows)
	if err != nil {
		return nil, err
	}
	return database.Rank(query, persons, opts), nil
}

func (r *PersonRepository) findSimilarHNSW(ctx context.Context, idx *database.HNSWIndex, query []float32, opts database.MatchOptions) ([]database.Match, error) {
	searchK := idx.Count()
	if opts.Limit > 0 {
		searchK = min(searchK, max(opts.Limit*database.HNSWSearchMultiplier, hnswMinSearchCandidates))
	}
	if searchK == 0 {
		return []database.Match{}, nil
	}

	ids, distances, err := idx.Search(query, searchK)
	if err != nil {
		return nil, fmt.Errorf("HNSW search: %w", err)
	}

	maxDistance := database.ScoreToDistance(opts.Threshold)
	candidates := make([]string, 0, len(ids))
	for i, id := range ids {
		if distances[i] < maxDistance {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []database.Match{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = ANY($1) ORDER BY seq`, pq.Array(candidates))
	if err != nil {
		return nil, fmt.Errorf("load HNSW candidates: %w", err)
	}
	persons, err := scanPersons(rows)
	if err != nil {
		return nil, err
	}
	return database.Rank(query, persons, opts), nil
}

// Stats summarizes the registry
func (r *PersonRepository) Stats(ctx context.Context) (*database.PersonStats, error) {
	stats := &database.PersonStats{
		ByStatus: make(map[database.Status]int),
		ByGender: make(map[database.Gender]int),
	}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(descriptor), COUNT(*) FILTER (WHERE image_url <> '')
		FROM persons
	`).Scan(&stats.Total, &stats.WithDescriptor, &stats.WithImage)
	if err != nil {
		return nil, fmt.Errorf("count persons: %w", err)
	}

	if err := r.countBy(ctx, `SELECT status, COUNT(*) FROM persons GROUP BY status`, func(k string, n int) {
		stats.ByStatus[database.Status(k)] = n
	}); err != nil {
		return nil, err
	}
	if err := r.countBy(ctx, `SELECT gender, COUNT(*) FROM persons WHERE gender <> '' GROUP BY gender`, func(k string, n int) {
		stats.ByGender[database.Gender(k)] = n
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *PersonRepository) countBy(ctx context.Context, query string, set func(string, int)) error {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("group persons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan group count: %w", err)
		}
		set(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate group counts: %w", err)
	}
	return nil
}

// Add validates and stores a new person
func (r *PersonRepository) Add(ctx context.Context, person *database.StoredPerson) error {
	now := r.now()
	if err := person.Normalize(now); err != nil {
		return err
	}
	info, err := additionalInfoArg(person.AdditionalInfo)
	if err != nil {
		return err
	}

	id := person.ID
	if id == "" {
		id = uuid.NewString()
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO persons (
			id, name, father_name, national_id, lost_location, lost_date,
			document_number, document_date, image_url, registration_date, gender, age,
			last_seen_date, status, height, weight, eye_color, hair_color,
			distinguishing_features, contact_person, contact_phone, reporter_id,
			additional_info, descriptor, descriptor_source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $26
		)
		RETURNING created_at
	`,
		id, person.Name, person.FatherName, person.NationalID, person.LostLocation, person.LostDate,
		person.DocumentNumber, nullDate(person.DocumentDate), person.ImageURL, person.RegistrationDate,
		string(person.Gender), person.Age, person.LastSeenDate, string(person.Status),
		person.Height, person.Weight, person.EyeColor, person.HairColor,
		person.DistinguishingFeatures, person.ContactPerson, person.ContactPhone, person.ReporterID,
		info, descriptorArg(person.Descriptor), string(person.DescriptorSource), now,
	).Scan(&person.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", mapWriteError(err))
	}

	person.ID = id
	person.UpdatedAt = person.CreatedAt
	if person.HasDescriptor() {
		r.indexDescriptor(id, person.Descriptor)
	}
	return nil
}

// Update replaces a stored person
func (r *PersonRepository) Update(ctx context.Context, person *database.StoredPerson) error {
	now := r.now()
	if err := person.Normalize(now); err != nil {
		return err
	}
	info, err := additionalInfoArg(person.AdditionalInfo)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var old sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT descriptor FROM persons WHERE id = $1 FOR UPDATE`, person.ID).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock person: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE persons SET
			name = $2, father_name = $3, national_id = $4, lost_location = $5, lost_date = $6,
			document_number = $7, document_date = $8, image_url = $9, registration_date = $10,
			gender = $11, age = $12, last_seen_date = $13, status = $14, height = $15, weight = $16,
			eye_color = $17, hair_color = $18, distinguishing_features = $19,
			contact_person = $20, contact_phone = $21, reporter_id = $22, additional_info = $23,
			descriptor = $24, descriptor_source = $25, updated_at = $26
		WHERE id = $1
		RETURNING created_at
	`,
		person.ID, person.Name, person.FatherName, person.NationalID, person.LostLocation, person.LostDate,
		person.DocumentNumber, nullDate(person.DocumentDate), person.ImageURL, person.RegistrationDate,
		string(person.Gender), person.Age, person.LastSeenDate, string(person.Status),
		person.Height, person.Weight, person.EyeColor, person.HairColor,
		person.DistinguishingFeatures, person.ContactPerson, person.ContactPhone, person.ReporterID,
		info, descriptorArg(person.Descriptor), string(person.DescriptorSource), now,
	).Scan(&person.CreatedAt)
	if err != nil {
		return fmt.Errorf("update person: %w", mapWriteError(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit person update: %w", err)
	}
	person.UpdatedAt = now

	if !sameDescriptor(old, person.Descriptor) {
		r.indexDescriptor(person.ID, person.Descriptor)
	}
	return nil
}

func sameDescriptor(stored sql.NullString, desc []float32) bool {
	if !stored.Valid {
		return len(desc) == 0
	}
	var v pgvector.Vector
	if err := v.Scan([]byte(stored.String)); err != nil {
		return false
	}
	old := v.Slice()
	if len(old) != len(desc) {
		return false
	}
	for i := range old {
		if old[i] != desc[i] {
			return false
		}
	}
	return true
}

// Delete removes a person
func (r *PersonRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if idx := r.index(); idx != nil {
		idx.Invalidate(id)
	}
	return nil
}

// SetDescriptor replaces the descriptor of a person
func (r *PersonRepository) SetDescriptor(ctx context.Context, id string, desc []float32, source descriptor.Source) error {
	if desc != nil {
		if err := descriptor.Validate(desc); err != nil {
			return fmt.Errorf("%w: %w", database.ErrInvalidRecord, err)
		}
	} else {
		source = ""
	}

	result, err := r.pool.Exec(ctx,
		`UPDATE persons SET descriptor = $2, descriptor_source = $3, updated_at = $4 WHERE id = $1`,
		id, descriptorArg(desc), string(source), r.now())
	if err != nil {
		return fmt.Errorf("set descriptor: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	r.indexDescriptor(id, desc)
	return nil
}

// SetImage replaces the image reference of a person
func (r *PersonRepository) SetImage(ctx context.Context, id, imageURL string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE persons SET image_url = $2, updated_at = $3 WHERE id = $1`, id, imageURL, r.now())
	if err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// descriptorIDs returns the IDs of persons that have a descriptor.
func (r *PersonRepository) descriptorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM persons WHERE descriptor IS NOT NULL ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list descriptor ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan descriptor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptor ids: %w", err)
	}
	return ids, nil
}

// index returns the HNSW index when enabled.
func (r *PersonRepository) index() *database.HNSWIndex {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if !r.hnswEnabled {
		return nil
	}
	return r.hnswIndex
}

// activeIndex returns the HNSW index only when it can answer queries:
// enabled, non-empty and without invalidated entries.
func (r *PersonRepository) activeIndex() *database.HNSWIndex {
	idx := r.index()
	if idx == nil || idx.IsEmpty() || idx.IsDirty() {
		return nil
	}
	return idx
}

// indexDescriptor mirrors a descriptor change into the HNSW index.
func (r *PersonRepository) indexDescriptor(id string, desc []float32) {
	idx := r.index()
	if idx == nil {
		return
	}
	if len(desc) == 0 {
		idx.Invalidate(id)
		return
	}
	idx.Add(id, desc)
}

// EnableHNSW loads the HNSW index from indexPath when it matches the
// registry, otherwise builds it from the database and saves it.
// An empty indexPath keeps the index in memory only.
func (r *PersonRepository) EnableHNSW(ctx context.Context, indexPath string) error {
	r.hnswMu.Lock()
	r.hnswIndexPath = indexPath
	r.hnswMu.Unlock()

	if indexPath != "" {
		version, err := r.registryVersion(ctx)
		if err != nil {
			return err
		}
		ids, err := r.descriptorIDs(ctx)
		if err != nil {
			return err
		}
		idx := database.NewHNSWIndex()
		err = idx.Load(indexPath, ids)
		if err == nil {
			r.setIndex(idx, version)
			fmt.Printf("Loaded HNSW index from %s (%d persons)\n", indexPath, idx.Count())
			return nil
		}
		fmt.Printf("HNSW index at %s not usable, rebuilding: %v\n", indexPath, err)
	}
	return r.buildHNSW(ctx)
}

func (r *PersonRepository) buildHNSW(ctx context.Context) error {
	// Read before listing so a write racing the build leaves the index stale.
	version, err := r.registryVersion(ctx)
	if err != nil {
		return err
	}
	persons, err := r.List(ctx)
	if err != nil {
		return fmt.Errorf("load persons for HNSW: %w", err)
	}

	idx := database.NewHNSWIndex()
	idx.Build(persons)
	r.setIndex(idx, version)

	if err := r.SaveHNSWIndex(); err != nil {
		fmt.Printf("Warning: failed to save HNSW index: %v\n", err)
	}
	return nil
}

func (r *PersonRepository) setIndex(idx *database.HNSWIndex, version registryVersion) {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()
	r.hnswIndex = idx
	r.hnswVersion = version
	r.hnswEnabled = true
}

// IsHNSWEnabled returns whether HNSW is enabled
func (r *PersonRepository) IsHNSWEnabled() bool {
	return r.index() != nil
}

// HNSWCount returns the number of persons in the HNSW index
func (r *PersonRepository) HNSWCount() int {
	if idx := r.index(); idx != nil {
		return idx.Count()
	}
	return 0
}

// RebuildHNSW rebuilds the HNSW index from the database, discarding any
// invalidated entries
func (r *PersonRepository) RebuildHNSW(ctx context.Context) error {
	if !r.IsHNSWEnabled() {
		return errors.New("HNSW index is not enabled")
	}
	return r.buildHNSW(ctx)
}

// SaveHNSWIndex saves the HNSW index to disk if a path is configured
func (r *PersonRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	idx, path, version := r.hnswIndex, r.hnswIndexPath, r.hnswVersion
	r.hnswMu.RUnlock()

	if idx == nil || path == "" {
		return nil
	}

	// Writes from other processes may have landed since the build.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if current, err := r.registryVersion(ctx); err != nil || !current.equal(version) {
		if _, err := database.RemoveHNSWSnapshot(path); err != nil {
			return fmt.Errorf("remove stale HNSW index: %w", err)
		}
		return nil
	}
	if err := idx.Save(path); err != nil {
		return fmt.Errorf("save HNSW index: %w", err)
	}
	return nil
}

var (
	_ database.PersonRepository = (*PersonRepository)(nil)
	_ database.HNSWRebuilder    = (*PersonRepository)(nil)
)
