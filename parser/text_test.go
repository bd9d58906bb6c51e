package parser

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		isNil bool
	}{
		{name: "dollar", input: "$12.34", want: 12.34},
		{name: "thousands", input: "Price: $1,234.50 / yd", want: 1234.5},
		{name: "integer", input: "45 per yard", want: 45},
		{name: "first token wins", input: "$18.00 – $22.00", want: 18},
		{name: "login prompt", input: "Login to see prices", isNil: true},
		{name: "empty", input: "", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input)
			if tt.isNil {
				if got != nil {
					t.Fatalf("ParsePrice(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripSKULabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "SKU: UF-1001", expected: "UF-1001"},
		{input: "sku:UF-1001", expected: "UF-1001"},
		{input: "Sku UF-1001", expected: "UF-1001"},
		{input: "  UF-1001 ", expected: "UF-1001"},
		{input: "SKU:", expected: ""},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		if got := StripSKULabel(tt.input); got != tt.expected {
			t.Errorf("StripSKULabel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCleanImageURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "https://cdn.test/up/chessie-scaled.jpg", expected: "https://cdn.test/up/chessie.jpg"},
		{input: "https://cdn.test/up/chessie-thumb.png?ver=3", expected: "https://cdn.test/up/chessie.png"},
		{input: "https://cdn.test/up/chessie-small.webp", expected: "https://cdn.test/up/chessie.webp"},
		{input: "https://cdn.test/up/chessie-300x300.jpg", expected: "https://cdn.test/up/chessie.jpg"},
		{input: "https://cdn.test/up/smallprint.jpg", expected: "https://cdn.test/up/smallprint.jpg"},
		{input: "https://cdn.test/up/chessie.jpg", expected: "https://cdn.test/up/chessie.jpg"},
	}

	for _, tt := range tests {
		if got := CleanImageURL(tt.input); got != tt.expected {
			t.Errorf("CleanImageURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://shop.test/fabric/page/2/"
	tests := []struct {
		href     string
		expected string
	}{
		{href: "/product/chessie/", expected: "https://shop.test/product/chessie/"},
		{href: "../3/", expected: "https://shop.test/fabric/page/3/"},
		{href: "https://other.test/x", expected: "https://other.test/x"},
		{href: "mailto:sales@shop.test", expected: ""},
		{href: "", expected: ""},
	}

	for _, tt := range tests {
		if got := AbsoluteURL(base, tt.href); got != tt.expected {
			t.Errorf("AbsoluteURL(%q) = %q, want %q", tt.href, got, tt.expected)
		}
	}
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "both warehouses", input: "120 Yards (NJ) 35 Yards (CA)", want: 155, wantOK: true},
		{name: "single yard", input: "1 Yard (CA)", want: 1, wantOK: true},
		{name: "thousands", input: "1,200 yards (nj)", want: 1200, wantOK: true},
		{name: "repeated warehouse counted once", input: "10 Yards (NJ) ... 10 Yards (NJ)", want: 10, wantOK: true},
		{name: "no figures", input: "In stock", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStock(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseStock(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenerateHandle(t *testing.T) {
	tests := []struct {
		title    string
		color    string
		expected string
	}{
		{title: "Premium Cotton Fabric", expected: "premium-cotton-fabric"},
		{title: "Cotton Blend", color: "Navy Blue", expected: "cotton-blend-navy-blue"},
		{title: "Deluxe Fabric & Co.", color: "Red/Orange", expected: "deluxe-fabric-co-redorange"},
	}

	for _, tt := range tests {
		if got := GenerateHandle(tt.title, tt.color); got != tt.expected {
			t.Errorf("GenerateHandle(%q, %q) = %q, want %q", tt.title, tt.color, got, tt.expected)
		}
	}
}
