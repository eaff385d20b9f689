package record

// Upstream column names this package gives meaning to. All other columns are
// carried through untouched.
const (
	// CodeColumn is the header name as it appears in the file.
	CodeColumn = "TG-Code"
	// ColumnCode is the cleaned form used as map key and SQL column.
	ColumnCode = "TG_Code"

	ColumnBrand = "Marke"
	ColumnType  = "Typ"

	ColumnHomologationDate = "Homologationsdatum"
	ColumnPower            = "Leistung"
	ColumnDrive            = "Antrieb"
	ColumnFuel             = "Treibstoff"
)

// EmptyPlaceholder marks empty values in normalized side tables, mirroring
// the upstream dataset convention.
const EmptyPlaceholder = "(leer)"

// KWToPS converts engine power from kW to metric horsepower.
const KWToPS = 1.35962

// Homologation date layouts: the file carries YYYYMMDD, the UI shows DD.MM.YYYY.
const (
	DateInputLayout   = "20060102"
	DateDisplayLayout = "02.01.2006"
)

// NormalizedColumns are low-cardinality columns stored in id+name side tables
// when present in the file.
var NormalizedColumns = []string{
	"Marke",
	"Getriebe",
	"Motormarke",
	"Motortyp",
	"Treibstoff",
	"Abgasreinigung",
	"Antrieb",
	"Anzahl_Achsen_Räder",
	"AbgasCode",
	"Emissionscode",
	"GeräuschCode",
}

// Units maps cleaned column names to their display unit.
var Units = map[string]string{
	"Leergewicht_von":         "kg",
	"Leergewicht_bis":         "kg",
	"Garantiegewicht_von":     "kg",
	"Garantiegewicht_bis":     "kg",
	"Gesamtzuggewicht_von":    "kg",
	"Gesamtzuggewicht_bis":    "kg",
	"Vmax_von":                "km/h",
	"Vmax_bis":                "km/h",
	"Hubraum":                 "ccm",
	"Leistung":                "kW",
	"Leistung_bei_n_min":      "rpm",
	"Drehmoment":              "Nm",
	"Drehmoment_bei_n_min":    "rpm",
	"Fahrgeräusch":            "dbA",
	"Standgeräusch":           "dbA",
	"Standgeräusch_bei_n_min": "rpm",
}

// omitted lists raw measurement series not shown to users (type test and
// endurance test emission values; the dataset publishes them but the
// datasheet never did).
var omitted = []string{
	"ET_CO", "ET_NMHC", "ET_NOx", "ET_PA", "ET_PA_Exp", "ET_PM",
	"ET_THC", "ET_THC_NOx", "ET_T_IV_THC", "ET_T_VI_CO", "ET_T_VI_THC",
	"ScCo2", "ScConsumption", "ScNh3", "ScNo2", "TC_CO2", "TC_Consumption",
	"TC_NH3", "TC_NO2", "ZT_CO", "ZT_NMHC", "ZT_NOx", "ZT_PA", "ZT_PA_Exp",
	"ZT_PM", "ZT_THC", "ZT_THC_NOx", "ZT_T_IV_THC", "ZT_T_VI_CO",
	"ZT_T_VI_THC", "ZT_AbgasCode",
}

// OmittedColumns is the cleaned-name set of columns excluded from display
// and export.
var OmittedColumns = func() map[string]bool {
	m := make(map[string]bool, len(omitted))
	for _, c := range omitted {
		m[CleanIdentifier(c)] = true
	}
	return m
}()

// Divider separates sections in DisplayOrder.
const Divider = "---"

// DisplayOrder is the datasheet layout: cleaned column names with section
// dividers. Columns missing from a record are skipped at render time.
var DisplayOrder = []string{
	ColumnCode,
	"Marke",
	"Typ",
	"Homologationsdatum",
	"Antrieb",
	"Hubraum",
	"Treibstoff",
	Divider,
	"Drehmoment",
	"Drehmoment_bei_n_min",
	"Leistung",
	"Leistung_bei_n_min",
	Divider,
	"Leergewicht_bis",
	"Leergewicht_von",
	"Garantiegewicht_von",
	Divider,
	"Vmax_bis",
	"Vmax_von",
	Divider,
	"Fahrgeräusch",
	"Standgeräusch",
	"Standgeräusch_bei_n_min",
	"GeräuschCode",
	Divider,
	"Anz_Zylinder",
	"Getriebe",
	"Motormarke",
	"Motortyp",
	"Takte",
	"iAchse",
	"AbgasCode",
	"Abgasreinigung",
	"Anzahl_Achsen_Räder",
	"Bauart",
	"Bemerkung",
	"Emissionscode",
	"Garantiegewicht_bis",
	"Gesamtzuggewicht_bis",
	"Gesamtzuggewicht_von",
}

// IsNormalized reports whether the given original column name is stored in a
// side table.
func IsNormalized(column string) bool {
	for _, c := range NormalizedColumns {
		if c == column {
			return true
		}
	}
	return false
}
