package catalog

// productTemplate is one row of the portfolio master list. Prices are
// list prices in DOP per case, costs are plant cost per case.
type productTemplate struct {
	Name     string
	Category string
	Brand    string
	PackSize string
	Price    float64
	Cost     string
}

// exciseByCategory maps a product category to its selective consumption
// tax rate. Categories absent from the map carry no excise.
var exciseByCategory = map[string]float64{
	"csd":     0.10,
	"energy":  0.15,
	"seltzer": 0.20,
}

var productMaster = []productTemplate{
	{"Coca-Cola 2L", "csd", "Coca-Cola", "2000ml", 90.00, "54.00"},
	{"Coca-Cola 1.25L", "csd", "Coca-Cola", "1250ml", 65.00, "39.00"},
	{"Coca-Cola 600ml", "csd", "Coca-Cola", "600ml", 45.00, "27.00"},
	{"Coca-Cola Lata 355ml", "csd", "Coca-Cola", "355ml", 35.00, "21.00"},
	{"Coca-Cola Sin Azucar 2L", "csd", "Coca-Cola", "2000ml", 95.00, "57.00"},
	{"Coca-Cola Sin Azucar 600ml", "csd", "Coca-Cola", "600ml", 48.00, "28.80"},
	{"Coca-Cola 3L", "csd", "Coca-Cola", "3000ml", 120.00, "72.00"},
	{"Sprite 2L", "csd", "Sprite", "2000ml", 85.00, "51.00"},
	{"Sprite 600ml", "csd", "Sprite", "600ml", 40.00, "24.00"},
	{"Sprite Cero 2L", "csd", "Sprite", "2000ml", 88.00, "52.80"},
	{"Fanta Naranja 2L", "csd", "Fanta", "2000ml", 80.00, "48.00"},
	{"Fanta Naranja 600ml", "csd", "Fanta", "600ml", 38.00, "22.80"},
	{"Fanta Uva 2L", "csd", "Fanta", "2000ml", 80.00, "48.00"},
	{"Fanta Pina 600ml", "csd", "Fanta", "600ml", 38.00, "22.80"},
	{"Mundet Manzana 600ml", "csd", "Mundet", "600ml", 42.00, "25.20"},
	{"Country Club Fresa 2L", "csd", "Country Club", "2000ml", 75.00, "45.00"},
	{"Country Club Uva 2L", "csd", "Country Club", "2000ml", 75.00, "45.00"},
	{"Country Club Merengue 2L", "csd", "Country Club", "2000ml", 75.00, "45.00"},
	{"Schweppes Ginger Ale 2L", "csd", "Schweppes", "2000ml", 95.00, "57.00"},
	{"Dasani 600ml", "water", "Dasani", "600ml", 25.00, "11.25"},
	{"Dasani 1.5L", "water", "Dasani", "1500ml", 40.00, "18.00"},
	{"Dasani Botellon 5gal", "water", "Dasani", "18900ml", 115.00, "51.75"},
	{"Powerade Azul 600ml", "isotonic", "Powerade", "600ml", 55.00, "30.25"},
	{"Powerade Roja 600ml", "isotonic", "Powerade", "600ml", 55.00, "30.25"},
	{"Powerade Verde 600ml", "isotonic", "Powerade", "600ml", 55.00, "30.25"},
	{"Aquarius Naranja 500ml", "isotonic", "Aquarius", "500ml", 48.00, "26.40"},
	{"Monster Original 473ml", "energy", "Monster", "473ml", 120.00, "66.00"},
	{"Monster Ultra 473ml", "energy", "Monster", "473ml", 120.00, "66.00"},
	{"Monster Mango Loco 473ml", "energy", "Monster", "473ml", 125.00, "68.75"},
	{"Burn 250ml", "energy", "Burn", "250ml", 75.00, "41.25"},
	{"Del Valle Naranja 1L", "juice", "Del Valle", "1000ml", 95.00, "57.00"},
	{"Del Valle Manzana 1L", "juice", "Del Valle", "1000ml", 95.00, "57.00"},
	{"Del Valle Durazno 1L", "juice", "Del Valle", "1000ml", 95.00, "57.00"},
	{"Del Valle Mango 350ml", "juice", "Del Valle", "350ml", 45.00, "27.00"},
	{"Santa Clara Leche Entera 1L", "dairy", "Santa Clara", "1000ml", 85.00, "59.50"},
	{"Santa Clara Deslactosada 1L", "dairy", "Santa Clara", "1000ml", 92.00, "64.40"},
	{"Fuze Tea Limon 500ml", "tea", "Fuze Tea", "500ml", 50.00, "27.50"},
	{"Fuze Tea Durazno 500ml", "tea", "Fuze Tea", "500ml", 50.00, "27.50"},
	{"Topo Chico Hard Seltzer Lima 355ml", "seltzer", "Topo Chico", "355ml", 185.00, "92.50"},
	{"Topo Chico Hard Seltzer Fresa 355ml", "seltzer", "Topo Chico", "355ml", 185.00, "92.50"},
}

// zoneTemplate is one distribution macro-zone with its depot and a
// relative demand factor.
type zoneTemplate struct {
	Zone   string
	Depot  string
	Factor float64
}

var zoneMaster = []zoneTemplate{
	{"Ozama", "CEDI-01", 1.30},
	{"Cibao Norte", "CEDI-02", 1.10},
	{"Cibao Sur", "CEDI-03", 0.85},
	{"Cibao Nordeste", "CEDI-04", 0.75},
	{"Cibao Noroeste", "CEDI-05", 0.65},
	{"Valdesia", "CEDI-06", 0.90},
	{"Yuma", "CEDI-07", 1.00},
	{"Higuamo", "CEDI-08", 0.88},
	{"Enriquillo", "CEDI-09", 0.70},
	{"El Valle", "CEDI-10", 0.60},
}

// segmentTemplate describes one customer value segment: its share of
// the customer base, the chance a product line is ordered in a month,
// and a baseline volume factor.
type segmentTemplate struct {
	Code         string
	Share        float64
	ActivityRate float64
	VolumeFactor float64
}

var segmentMaster = []segmentTemplate{
	{"A", 0.05, 0.90, 10.0},
	{"B", 0.15, 0.75, 6.0},
	{"C+", 0.20, 0.60, 4.0},
	{"C-", 0.25, 0.45, 2.5},
	{"D", 0.20, 0.35, 1.5},
	{"E", 0.15, 0.25, 0.8},
}

// channelTemplate describes one trade channel with its share of the
// customer base and a volume factor.
type channelTemplate struct {
	Name         string
	Share        float64
	VolumeFactor float64
}

var channelMaster = []channelTemplate{
	{"colmado", 0.55, 1.0},
	{"supermercado", 0.25, 3.0},
	{"horeca", 0.12, 1.8},
	{"mayorista", 0.08, 4.5},
}
