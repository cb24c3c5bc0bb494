package cart

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/seatosky/storefront/internal/catalog"
)

func mustProduct(t *testing.T, id, price string, sizes ...string) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		ID:     id,
		Title:  "Product " + id,
		Price:  price,
		Images: []string{"assets/images/" + id + ".png", "assets/images/" + id + "_alt.png"},
		Sizes:  sizes,
	})
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	return p
}

func money(t *testing.T, d decimal.Decimal) string {
	t.Helper()
	return d.StringFixed(2)
}

func TestAddSameProductAndSizeMergesLines(t *testing.T) {
	p := mustProduct(t, "604-skyline", "15.00", "8x10", "11x14")

	var c Cart
	for i := 0; i < 5; i++ {
		c = c.Add(p, "11x14")
	}

	if c.Len() != 1 {
		t.Fatalf("expected one line, got %d", c.Len())
	}
	line, err := c.At(0)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if line.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", line.Quantity)
	}
}

func TestAddDifferentSizesCreatesDistinctLines(t *testing.T) {
	p := mustProduct(t, "604-skyline", "15.00", "8x10", "11x14")

	c := Cart{}.Add(p, "8x10").Add(p, "11x14")
	if c.Len() != 2 {
		t.Fatalf("expected two lines, got %d", c.Len())
	}
	if c.Find(Key{ProductID: p.ID, Size: "11x14"}) != 1 {
		t.Fatalf("expected 11x14 at index 1")
	}
}

func TestAddSnapshotsProductFields(t *testing.T) {
	p := mustProduct(t, "hat", "35.00", "One Size")

	c := Cart{}.Add(p, "One Size")
	p.Title = "Renamed"
	p.Price = decimal.NewFromInt(99)

	line, _ := c.At(0)
	if line.Title != "Product hat" {
		t.Fatalf("title should be captured at add time, got %q", line.Title)
	}
	if money(t, line.Price) != "35.00" {
		t.Fatalf("price should be captured at add time, got %s", line.Price)
	}
	if line.Image != "assets/images/hat.png" {
		t.Fatalf("expected primary image snapshot, got %q", line.Image)
	}
}

func TestAddDoesNotMutateReceiver(t *testing.T) {
	p := mustProduct(t, "hat", "35.00", "One Size")

	base := Cart{}.Add(p, "One Size")
	_ = base.Add(p, "One Size")

	line, _ := base.At(0)
	if line.Quantity != 1 {
		t.Fatalf("receiver was mutated: quantity %d", line.Quantity)
	}
}

func TestDecrementNeverBelowOne(t *testing.T) {
	p := mustProduct(t, "hat", "35.00", "One Size")
	c := Cart{}.Add(p, "One Size").Add(p, "One Size")

	var err error
	for i := 0; i < 3; i++ {
		c, err = c.Decrement(0)
		if err != nil {
			t.Fatalf("decrement: %v", err)
		}
	}
	line, _ := c.At(0)
	if line.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", line.Quantity)
	}
}

func TestRemoveKeepsOtherLinesInOrder(t *testing.T) {
	a := mustProduct(t, "a", "1.00", "S")
	b := mustProduct(t, "b", "2.00", "S")
	d := mustProduct(t, "d", "3.00", "S")

	c := Cart{}.Add(a, "S").Add(b, "S").Add(d, "S")
	c, err := c.Remove(1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	items := c.Items()
	if len(items) != 2 || items[0].ProductID != "a" || items[1].ProductID != "d" {
		t.Fatalf("unexpected lines after remove: %+v", items)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	p := mustProduct(t, "a", "1.00", "S")
	c := Cart{}.Add(p, "S")

	ops := map[string]func(int) (Cart, error){
		"remove":    c.Remove,
		"increment": c.Increment,
		"decrement": c.Decrement,
	}
	for name, op := range ops {
		for _, idx := range []int{-1, 1, 42} {
			got, err := op(idx)
			if !errors.Is(err, ErrInvalidLineIndex) {
				t.Fatalf("%s(%d): expected ErrInvalidLineIndex, got %v", name, idx, err)
			}
			if got.Len() != 1 {
				t.Fatalf("%s(%d): cart changed on error", name, idx)
			}
		}
	}

	if _, err := c.At(3); !errors.Is(err, ErrInvalidLineIndex) {
		t.Fatalf("at: expected ErrInvalidLineIndex, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	skyline := mustProduct(t, "604-skyline", "15.00", "11x14", "16x20")
	tote := mustProduct(t, "tote", "25.10", "One Size")

	c := Cart{}.Add(skyline, "11x14").Add(skyline, "11x14").Add(tote, "One Size")
	sum := c.Summarize(FlatShipping())

	if sum.Items != 3 {
		t.Fatalf("expected 3 items, got %d", sum.Items)
	}
	if got := money(t, sum.Subtotal); got != "55.10" {
		t.Fatalf("expected subtotal 55.10, got %s", got)
	}
	if got := money(t, sum.Shipping); got != "5.00" {
		t.Fatalf("expected shipping 5.00, got %s", got)
	}
	if got := money(t, sum.Total); got != "60.10" {
		t.Fatalf("expected total 60.10, got %s", got)
	}
}

func TestSummarizeEmptyCart(t *testing.T) {
	sum := Cart{}.Summarize(FlatShipping())
	if sum.Items != 0 || !sum.Subtotal.IsZero() {
		t.Fatalf("unexpected empty summary: %+v", sum)
	}
	if money(t, sum.Total) != "5.00" {
		t.Fatalf("expected total to equal shipping, got %s", sum.Total)
	}
}

func TestJSONLayout(t *testing.T) {
	p := mustProduct(t, "604-skyline", "15.00", "11x14")
	c := Cart{}.Add(p, "11x14")

	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"id":"604-skyline","title":"Product 604-skyline","price":15.00,"image":"assets/images/604-skyline.png","size":"11x14","quantity":1}]`
	if string(raw) != want {
		t.Fatalf("unexpected layout:\n got %s\nwant %s", raw, want)
	}

	empty, err := json.Marshal(Cart{})
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(empty) != "[]" {
		t.Fatalf("expected empty array, got %s", empty)
	}
}

func TestUnmarshalAcceptsLegacyNumbers(t *testing.T) {
	raw := `[{"id":"ski-dad-hat","title":"Ski. Dad Hat","price":35,"image":"a.png","size":"One Size","quantity":2}]`

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	line, _ := c.At(0)
	if money(t, line.Price) != "35.00" || line.Quantity != 2 {
		t.Fatalf("unexpected line: %+v", line)
	}
}

func TestUnmarshalRejectsInvalidLines(t *testing.T) {
	cases := []string{
		`[{"id":"a","price":1,"size":"S","quantity":0}]`,
		`[{"id":"","price":1,"size":"S","quantity":1}]`,
		`[{"id":"a","size":"S","quantity":1}]`,
		`[{"id":"a","price":15.005,"size":"S","quantity":3}]`,
		`{"id":"a"}`,
	}
	for _, raw := range cases {
		var c Cart
		if err := json.Unmarshal([]byte(raw), &c); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestPriceSurvivesRoundTrip(t *testing.T) {
	raw := `[{"id":"a","title":"A","price":15.5,"image":"a.png","size":"S","quantity":3}]`

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again Cart
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	before, _ := c.At(0)
	after, _ := again.At(0)
	if !before.Total().Equal(after.Total()) || money(t, after.Total()) != "46.50" {
		t.Fatalf("total changed across round trip: %s -> %s", before.Total(), after.Total())
	}
}
