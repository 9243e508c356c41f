package search

import (
	"context"
	"fmt"
	"strings"

	"poojaconstructions/api/internal/content"
)

// ContentSource exposes the live content collections for scanning and
// reindexing.
type ContentSource interface {
	Projects(ctx context.Context) ([]content.Project, error)
	Services(ctx context.Context) ([]content.Service, error)
	Bitumen(ctx context.Context) ([]content.BitumenProduct, error)
	Team(ctx context.Context) ([]content.TeamMember, error)
}

// Scanner implements Searcher by substring-matching over the live
// collections. It is the fallback when Meilisearch is not configured or
// unreachable; the collections are small enough that a full scan per query
// is cheap.
type Scanner struct {
	source ContentSource
}

func NewScanner(source ContentSource) *Scanner {
	return &Scanner{source: source}
}

// Healthy always reports true; the scanner has no external dependency
// beyond the collections themselves.
func (s *Scanner) Healthy() bool { return true }

// Search scans the flattened records for case-insensitive substring matches.
func (s *Scanner) Search(ctx context.Context, q Query) ([]Result, int, error) {
	records, err := LoadRecords(ctx, s.source, q.FilterType)
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))

	var matched []Result
	for _, rec := range records {
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.Title), needle) &&
			!strings.Contains(strings.ToLower(rec.Body), needle) {
			continue
		}
		matched = append(matched, Result{
			Type:    rec.Type,
			ID:      rec.ID,
			Title:   rec.Title,
			Snippet: snippet(rec.Body),
			Image:   rec.Image,
		})
	}

	total := len(matched)
	matched = page(matched, q.Offset, q.Limit)
	return matched, total, nil
}

func page(results []Result, offset, limit int) []Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	results = results[offset:]
	if limit <= 0 {
		limit = 20
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results
}

const snippetLength = 160

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= snippetLength {
		return body
	}
	cut := body[:snippetLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// LoadRecords flattens the requested collections into index records. An
// empty filter loads everything.
func LoadRecords(ctx context.Context, source ContentSource, filter ResultType) ([]Record, error) {
	var records []Record

	if filter == "" || filter == ResultProject {
		projects, err := source.Projects(ctx)
		if err != nil {
			return nil, fmt.Errorf("load projects: %w", err)
		}
		for _, p := range projects {
			records = append(records, ProjectRecord(p))
		}
	}
	if filter == "" || filter == ResultService {
		services, err := source.Services(ctx)
		if err != nil {
			return nil, fmt.Errorf("load services: %w", err)
		}
		for _, s := range services {
			records = append(records, ServiceRecord(s))
		}
	}
	if filter == "" || filter == ResultBitumen {
		products, err := source.Bitumen(ctx)
		if err != nil {
			return nil, fmt.Errorf("load bitumen products: %w", err)
		}
		for _, b := range products {
			records = append(records, BitumenRecord(b))
		}
	}
	if filter == "" || filter == ResultTeam {
		members, err := source.Team(ctx)
		if err != nil {
			return nil, fmt.Errorf("load team: %w", err)
		}
		for _, t := range members {
			records = append(records, TeamRecord(t))
		}
	}

	return records, nil
}

// ProjectRecord flattens a project for indexing.
func ProjectRecord(p content.Project) Record {
	return Record{
		ID:    RecordID(ResultProject, p.ID),
		Type:  ResultProject,
		Title: p.Title,
		Body:  strings.Join([]string{p.Category, p.Location, p.Year}, " "),
		Image: p.Image,
	}
}

// ServiceRecord flattens a service for indexing.
func ServiceRecord(s content.Service) Record {
	return Record{
		ID:    RecordID(ResultService, s.ID),
		Type:  ResultService,
		Title: s.Title,
		Body:  strings.Join(append([]string{s.Description}, s.Features...), " "),
		Image: s.Image,
	}
}

// BitumenRecord flattens a bitumen product for indexing.
func BitumenRecord(b content.BitumenProduct) Record {
	parts := append([]string{b.Description}, b.Specifications...)
	parts = append(parts, b.Applications...)
	return Record{
		ID:    RecordID(ResultBitumen, b.ID),
		Type:  ResultBitumen,
		Title: b.Title,
		Body:  strings.Join(parts, " "),
		Image: b.Image,
	}
}

// TeamRecord flattens a team member for indexing.
func TeamRecord(t content.TeamMember) Record {
	return Record{
		ID:    RecordID(ResultTeam, t.ID),
		Type:  ResultTeam,
		Title: t.Name,
		Body:  strings.Join([]string{t.Position, t.Bio}, " "),
		Image: t.Image,
	}
}

// RecordID builds the index document id for a content entity.
func RecordID(t ResultType, id int) string {
	return fmt.Sprintf("%s-%d", t, id)
}
