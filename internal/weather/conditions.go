package weather

// Condition names a WMO weather interpretation code.
func Condition(code int) string {
	switch code {
	case 0:
		return "clear"
	case 1, 2:
		return "partly cloudy"
	case 3:
		return "cloudy"
	case 45, 48:
		return "fog"
	case 51, 53, 55, 61, 63, 65:
		return "rain"
	case 71, 73, 75, 77:
		return "snow"
	case 80, 81, 82:
		return "showers"
	case 95, 96, 99:
		return "thunderstorm"
	default:
		return "cloudy"
	}
}
