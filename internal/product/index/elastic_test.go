package index

import (
	"encoding/json"
	"testing"

	"github.com/fekuna/omnipos-marketplace-service/internal/product/dto"
)

func TestQueryScopesToVendor(t *testing.T) {
	q := Query(&dto.ProductFilters{
		VendorID:    "vendor-1",
		Status:      "published",
		SearchQuery: "blue dream",
		Page:        3,
		PageSize:    10,
	})

	if q["from"] != 20 || q["size"] != 10 {
		t.Fatalf("paging = %v/%v", q["from"], q["size"])
	}

	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Query struct {
			Bool struct {
				Filter []map[string]map[string]string `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	for _, f := range decoded.Query.Bool.Filter {
		for field, v := range f["term"] {
			got[field] = v
		}
	}
	if got["vendor_id"] != "vendor-1" || got["status"] != "published" {
		t.Fatalf("filters = %v", got)
	}
	if _, ok := got["category_id"]; ok {
		t.Fatal("empty category must not filter")
	}
}
