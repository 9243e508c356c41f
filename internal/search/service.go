package search

import (
	"context"
	"log"

	"poojaconstructions/api/internal/content"
)

// Service is the facade that tries Meilisearch first and falls back to a
// live collection scan.
type Service struct {
	meili   *Meili
	scanner *Scanner
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, scanner *Scanner) *Service {
	return &Service{meili: meili, scanner: scanner}
}

// Search tries Meilisearch if healthy, otherwise scans the collections.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results, total, err := s.scanner.Search(ctx, q)
	if err != nil {
		log.Printf("search: collection scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// SyncProjects replaces the indexed projects after a collection write
// (fire-and-forget to Meilisearch).
func (s *Service) SyncProjects(prev, next []content.Project) {
	records := make([]Record, len(next))
	ids := make(map[string]bool, len(next))
	for i, p := range next {
		records[i] = ProjectRecord(p)
		ids[records[i].ID] = true
	}
	var stale []string
	for _, p := range prev {
		if id := RecordID(ResultProject, p.ID); !ids[id] {
			stale = append(stale, id)
		}
	}
	s.sync(records, stale)
}

// SyncServices replaces the indexed services after a collection write.
func (s *Service) SyncServices(prev, next []content.Service) {
	records := make([]Record, len(next))
	ids := make(map[string]bool, len(next))
	for i, svc := range next {
		records[i] = ServiceRecord(svc)
		ids[records[i].ID] = true
	}
	var stale []string
	for _, svc := range prev {
		if id := RecordID(ResultService, svc.ID); !ids[id] {
			stale = append(stale, id)
		}
	}
	s.sync(records, stale)
}

// SyncBitumen replaces the indexed bitumen products after a collection write.
func (s *Service) SyncBitumen(prev, next []content.BitumenProduct) {
	records := make([]Record, len(next))
	ids := make(map[string]bool, len(next))
	for i, b := range next {
		records[i] = BitumenRecord(b)
		ids[records[i].ID] = true
	}
	var stale []string
	for _, b := range prev {
		if id := RecordID(ResultBitumen, b.ID); !ids[id] {
			stale = append(stale, id)
		}
	}
	s.sync(records, stale)
}

// SyncTeam replaces the indexed team members after a collection write.
func (s *Service) SyncTeam(prev, next []content.TeamMember) {
	records := make([]Record, len(next))
	ids := make(map[string]bool, len(next))
	for i, t := range next {
		records[i] = TeamRecord(t)
		ids[records[i].ID] = true
	}
	var stale []string
	for _, t := range prev {
		if id := RecordID(ResultTeam, t.ID); !ids[id] {
			stale = append(stale, id)
		}
	}
	s.sync(records, stale)
}

func (s *Service) sync(records []Record, stale []string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		for _, id := range stale {
			if err := s.meili.DeleteRecord(id); err != nil {
				log.Printf("search: delete record %s: %v", id, err)
			}
		}
		if err := s.meili.IndexRecords(records); err != nil {
			log.Printf("search: index records: %v", err)
		}
	}()
}

// ReindexAll loads every collection and pushes it to Meilisearch. Called
// during bootstrap so the index reflects content written while the server
// was down.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records, err := LoadRecords(ctx, s.scanner.source, "")
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexRecords(records); err != nil {
		log.Printf("search: reindex: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
