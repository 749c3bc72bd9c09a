package models

// Hotel types accepted by the catalog.
const (
	HotelTypeHotel     = "hotel"
	HotelTypeApartment = "apartment"
	HotelTypeResort    = "resort"
	HotelTypeVilla     = "villa"
	HotelTypeCabin     = "cabin"
)

// GetHotelTypes 返回所有酒店类型，顺序固定
func GetHotelTypes() []string {
	return []string{
		HotelTypeHotel,
		HotelTypeApartment,
		HotelTypeResort,
		HotelTypeVilla,
		HotelTypeCabin,
	}
}

// IsHotelType reports whether t is one of the accepted hotel types.
func IsHotelType(t string) bool {
	for _, known := range GetHotelTypes() {
		if known == t {
			return true
		}
	}
	return false
}

// TypeCount is one entry of the per-type hotel count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}
