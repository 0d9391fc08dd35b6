package crawl

import (
	"encoding/json"
	"testing"
)

func TestValidateSnapshotPayload(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{
		"project_id": "proj-1",
		"project_name": "Jardin",
		"crawl_id": "crawl-42",
		"pages": [
			{"url": "https://www.example.com/sol.html", "title": "Préparer le sol", "status_code": "200", "word_count": "840"}
		]
	}`)

	snapshot, err := ValidateSnapshotPayload(payload)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if snapshot.ProjectID != "proj-1" || snapshot.CrawlID != "crawl-42" {
		t.Fatalf("unexpected identifiers: %+v", snapshot)
	}
	if len(snapshot.Pages) != 1 || snapshot.Pages[0].WordCount != "840" {
		t.Fatalf("unexpected pages: %+v", snapshot.Pages)
	}
}

func TestValidateSnapshotPayloadRejectsMissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
	}{
		{"missing project_id", `{"crawl_id": "c", "pages": []}`},
		{"missing crawl_id", `{"project_id": "p", "pages": []}`},
		{"missing pages", `{"project_id": "p", "crawl_id": "c"}`},
		{"blank project_id", `{"project_id": "  ", "crawl_id": "c", "pages": []}`},
		{"page without url", `{"project_id": "p", "crawl_id": "c", "pages": [{"title": "t"}]}`},
		{"numeric word_count", `{"project_id": "p", "crawl_id": "c", "pages": [{"url": "https://e.com/", "word_count": 840}]}`},
		{"unknown field", `{"project_id": "p", "crawl_id": "c", "pages": [], "extra": true}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ValidateSnapshotPayload(json.RawMessage(tc.payload)); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestValidateSnapshotPayloadRejectsTrailingData(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{"project_id": "p", "crawl_id": "c", "pages": []} {"second": true}`)
	if _, err := ValidateSnapshotPayload(payload); err == nil {
		t.Fatalf("expected error for trailing document")
	}
}

func TestValidateSnapshotPayloadRejectsNonObject(t *testing.T) {
	t.Parallel()

	if _, err := ValidateSnapshotPayload(json.RawMessage(`[1, 2, 3]`)); err == nil {
		t.Fatalf("expected error for array payload")
	}
}
