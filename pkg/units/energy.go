// Package units provides canonical energy unit types and conversions.
package units

// Unit represents a measurable quantity.
type Unit string

const (
	// Energy units
	UnitKWh   Unit = "kWh"
	UnitTherm Unit = "therms"
	UnitKBtu  Unit = "kBtu"
	UnitMMBtu Unit = "MMBtu"

	// Demand units
	UnitKW Unit = "kW"

	// Water units
	UnitKGal Unit = "kGal"

	// Emissions units
	UnitTonsCO2e       Unit = "tCO2e"
	UnitDollarsPerTon  Unit = "$/tCO2e"
)

// Conversion factors to kBtu, the cross-fuel reporting unit.
const (
	KBtuPerKWh   = 3.412
	KBtuPerTherm = 100.0
	KBtuPerMMBtu = 1000.0
)

// ElectricToKBtu converts electric savings in kWh to kBtu.
func ElectricToKBtu(kwh float64) float64 {
	return kwh * KBtuPerKWh
}

// GasToKBtu converts gas savings in therms to kBtu.
func GasToKBtu(therms float64) float64 {
	return therms * KBtuPerTherm
}

// CombinedKBtu normalizes electric and gas savings into one figure.
func CombinedKBtu(electricKWh, gasTherms float64) float64 {
	return ElectricToKBtu(electricKWh) + GasToKBtu(gasTherms)
}

// KBtuToMMBtu converts kBtu to MMBtu.
func KBtuToMMBtu(kbtu float64) float64 {
	return kbtu / KBtuPerMMBtu
}

// MMBtuToKBtu converts MMBtu to kBtu.
func MMBtuToKBtu(mmbtu float64) float64 {
	return mmbtu * KBtuPerMMBtu
}
