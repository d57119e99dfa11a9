package domain

// Detection is one bottle the image-recognition endpoint saw in a photo.
type Detection struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ScanSuggestion pairs a detection with the closest catalog bottle.
type ScanSuggestion struct {
	Bottle     *Bottle   `json:"bottle"`
	Detection  Detection `json:"detection"`
	Similarity float64   `json:"similarity"`
}

// ShelfEntry turns the suggestion into a shelf row, one per detected bottle.
func (s ScanSuggestion) ShelfEntry() ShelfEntry {
	qty := s.Detection.Count
	if qty < 1 {
		qty = DefaultQuantity
	}
	volume := s.Bottle.VolumeML
	if volume == 0 {
		volume = DefaultVolumeML
	}
	return ShelfEntry{
		BottleID:        s.Bottle.ID,
		CurrentVolumeML: volume,
		Quantity:        qty,
	}
}
