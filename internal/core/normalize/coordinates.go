package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	signedPairPattern = regexp.MustCompile(`^(-?\d{1,3}(?:\.\d+)?)\s*[,;\s]\s*(-?\d{1,3}(?:\.\d+)?)$`)
	degreePattern     = regexp.MustCompile(`(-?\d{1,3}(?:[.,]\d+)?)\s*[°º]\s*([NSEWOLnsewol])\b`)
	dmsPattern        = regexp.MustCompile(`(\d{1,3})\s*[°º]\s*(\d{1,2})\s*['′’]\s*(\d{1,2}(?:[.,]\d+)?)\s*(?:"|″|”|'')?\s*([NSEWOLnsewol])\b`)
)

// Coordinates parses a latitude/longitude pair. Accepted shapes:
//
//	-15.7801, -47.9292                    signed decimal pair
//	16.042776°S, 48.029226°W              decimal degrees with hemispheres
//	15°47'48.4"S 47°55'45.1"W             degrees-minutes-seconds
//
// S and W (or O, oeste) make the value negative. Anything else yields ok=false.
func Coordinates(text string) (lat, lon float64, ok bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "−", "-"))
	if text == "" {
		return 0, 0, false
	}

	if matches := dmsPattern.FindAllStringSubmatch(text, -1); len(matches) == 2 {
		return assignHemispheres(matches, func(m []string) float64 {
			deg := parseNumber(m[1])
			minutes := parseNumber(m[2])
			seconds := parseNumber(m[3])
			return deg + minutes/60 + seconds/3600
		}, 4)
	}

	if matches := degreePattern.FindAllStringSubmatch(text, -1); len(matches) == 2 {
		return assignHemispheres(matches, func(m []string) float64 {
			v := parseNumber(m[1])
			if v < 0 {
				v = -v
			}
			return v
		}, 2)
	}

	if m := signedPairPattern.FindStringSubmatch(text); m != nil {
		return parseNumber(m[1]), parseNumber(m[2]), true
	}
	return 0, 0, false
}

// assignHemispheres places the two parsed values by their hemisphere letter
// and applies the sign. One value must be N/S and the other E/W.
func assignHemispheres(matches [][]string, magnitude func([]string) float64, letterIdx int) (float64, float64, bool) {
	var (
		lat, lon       float64
		hasLat, hasLon bool
	)
	for _, m := range matches {
		value := magnitude(m)
		switch strings.ToUpper(m[letterIdx]) {
		case "N":
			lat, hasLat = value, true
		case "S":
			lat, hasLat = -value, true
		case "E", "L":
			lon, hasLon = value, true
		case "W", "O":
			lon, hasLon = -value, true
		}
	}
	if !hasLat || !hasLon {
		return 0, 0, false
	}
	return lat, lon, true
}

func parseNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}
