package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"policyrag/internal/domain"
)

var _ domain.VectorStore = (*Storage)(nil)

func doc(id, title, content, category, date string) domain.Document {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.Document{ID: id, Title: title, Content: content, Category: category, Date: d, Version: date[:7]}
}

func TestSearchEmptyStore(t *testing.T) {
	s := NewStorage()
	if res := s.Search("anything", 3); len(res) != 0 {
		t.Fatalf("expected no results from empty store, got %d", len(res))
	}
}

func TestSearchNonPositiveTopK(t *testing.T) {
	s := NewStorage()
	s.Add(doc("1", "Onboarding", "New employees must complete onboarding.", "onboarding", "2023-06-01"))
	for _, k := range []int{0, -1} {
		if res := s.Search("onboarding", k); len(res) != 0 {
			t.Errorf("topK=%d: expected no results, got %d", k, len(res))
		}
	}
}

func TestSearchByTitleFindsDocument(t *testing.T) {
	docs := []domain.Document{
		doc("1", "Onboarding", "New employees must complete onboarding within 5 business days.", "onboarding", "2023-06-01"),
		doc("2", "Expense Reimbursement", "Submit receipts within thirty days.", "finance", "2023-01-15"),
		doc("3", "Remote Work", "Staff may work remotely two days per week.", "hr", "2022-03-01"),
	}
	for _, d := range docs {
		s := NewStorage()
		s.Add(d)
		res := s.Search(d.Title, 1)
		if len(res) != 1 {
			t.Fatalf("%s: expected one result, got %d", d.Title, len(res))
		}
		if res[0].Document.ID != d.ID {
			t.Errorf("%s: got document %s", d.Title, res[0].Document.ID)
		}
		if res[0].Score <= 0 {
			t.Errorf("%s: expected positive score, got %v", d.Title, res[0].Score)
		}
	}
}

func TestSearchRanksByRelevance(t *testing.T) {
	s := NewStorage()
	s.Add(doc("hr", "Leave", "Annual leave requests go through the HR portal.", "hr", "2023-01-01"))
	s.Add(doc("sec", "Security Incident", "Report a data incident to the security team within 24 hours.", "incident", "2023-12-01"))
	s.Add(doc("fin", "Expenses", "Expenses need manager approval.", "finance", "2023-02-01"))

	res := s.Search("how do I report a data incident", 3)
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if res[0].Document.ID != "sec" {
		t.Errorf("expected security doc first, got %s", res[0].Document.ID)
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("results not sorted at %d: %v > %v", i, res[i].Score, res[i-1].Score)
		}
	}
	for _, r := range res {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score out of range: %v", r.Score)
		}
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	s := NewStorage()
	for i := 0; i < 5; i++ {
		s.Add(doc(fmt.Sprint(i), "", "unrelated filler content", "misc", "2023-01-01"))
	}
	res := s.Search("zebra", 5)
	if len(res) != 5 {
		t.Fatalf("expected 5 results, got %d", len(res))
	}
	for i, r := range res {
		if r.Score != 0 {
			t.Errorf("expected zero score for disjoint query, got %v", r.Score)
		}
		if r.Document.ID != fmt.Sprint(i) {
			t.Errorf("position %d holds %s, want insertion order", i, r.Document.ID)
		}
	}
}

func TestSearchTopKLimit(t *testing.T) {
	s := NewStorage()
	for i := 0; i < 4; i++ {
		s.Add(doc(fmt.Sprint(i), "Policy", "policy text", "misc", "2023-01-01"))
	}
	if res := s.Search("policy", 2); len(res) != 2 {
		t.Errorf("expected 2 results, got %d", len(res))
	}
	if res := s.Search("policy", 10); len(res) != 4 {
		t.Errorf("expected 4 results, got %d", len(res))
	}
}

func TestAddRecomputesAllVectors(t *testing.T) {
	s := NewStorage()
	s.Add(doc("a", "", "incident reporting procedure", "incident", "2022-07-01"))
	before := s.vectors[0]["incident"]
	s.Add(doc("b", "", "incident escalation", "incident", "2023-12-01"))
	after := s.vectors[0]["incident"]
	if before == after {
		t.Errorf("first document vector not recomputed after second insert")
	}
	if s.df["incident"] != 2 {
		t.Errorf("df[incident] = %d, want 2", s.df["incident"])
	}
	if len(s.vectors) != len(s.docs) {
		t.Errorf("vectors (%d) and docs (%d) out of sync", len(s.vectors), len(s.docs))
	}
}

func TestDuplicateIDsAreAdditive(t *testing.T) {
	s := NewStorage()
	d := doc("same", "Onboarding", "complete onboarding", "onboarding", "2023-06-01")
	s.Add(d)
	s.Add(d)
	if s.Len() != 2 {
		t.Errorf("expected duplicate insert to append, got %d docs", s.Len())
	}
}

func TestAllDocumentsReturnsCopy(t *testing.T) {
	s := NewStorage()
	s.Add(doc("1", "Onboarding", "complete onboarding", "onboarding", "2023-06-01"))
	all := s.AllDocuments()
	all[0].Title = "mutated"
	if s.AllDocuments()[0].Title != "Onboarding" {
		t.Errorf("AllDocuments exposed internal state")
	}
}

func TestClear(t *testing.T) {
	s := NewStorage()
	s.Add(doc("1", "Onboarding", "complete onboarding", "onboarding", "2023-06-01"))
	s.Clear()
	if s.Len() != 0 || s.Vocabulary() != 0 {
		t.Errorf("store not empty after Clear: %d docs, %d terms", s.Len(), s.Vocabulary())
	}
	if res := s.Search("onboarding", 1); len(res) != 0 {
		t.Errorf("expected no results after Clear")
	}
}

func TestAddAllMatchesSequentialAdd(t *testing.T) {
	docs := []domain.Document{
		doc("1", "Onboarding", "complete onboarding within days", "onboarding", "2023-06-01"),
		doc("2", "Incident", "report incident within hours", "incident", "2023-12-01"),
	}
	a := NewStorage()
	for _, d := range docs {
		a.Add(d)
	}
	b := NewStorage()
	b.AddAll(docs)
	ra, rb := a.Search("report incident", 2), b.Search("report incident", 2)
	for i := range ra {
		if ra[i].Document.ID != rb[i].Document.ID || ra[i].Score != rb[i].Score {
			t.Errorf("position %d differs: %v vs %v", i, ra[i], rb[i])
		}
	}
}

func TestConcurrentAddAndSearch(t *testing.T) {
	s := NewStorage()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Add(doc(fmt.Sprint(i), "Policy", fmt.Sprintf("policy number %d about incidents", i), "misc", "2023-01-01"))
		}(i)
		go func() {
			defer wg.Done()
			for _, r := range s.Search("policy incidents", 5) {
				if r.Score < 0 || r.Score > 1 {
					t.Errorf("score out of range during concurrent writes: %v", r.Score)
				}
			}
		}()
	}
	wg.Wait()
	if s.Len() != 20 {
		t.Errorf("expected 20 documents, got %d", s.Len())
	}
}
