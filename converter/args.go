package converter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrInvalidArgument matches every *ArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports a missing or malformed argument.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func argumentErrorf(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// maxDimension bounds each side of a render so buffers stay addressable by
// the engine's 32-bit canvas arguments.
const maxDimension = 1 << 15

// Resolution is the pixel size of exported images.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// DefaultResolution is used when no resolution is configured.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// ParseResolution parses "WxH", for example "1920x1080".
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return Resolution{}, argumentErrorf("invalid resolution format: %q (want WxH)", s)
	}
	width, err := parseDimension(s, w)
	if err != nil {
		return Resolution{}, err
	}
	height, err := parseDimension(s, h)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Width: width, Height: height}, nil
}

func parseDimension(resolution, side string) (int, error) {
	n, err := strconv.Atoi(side)
	if errors.Is(err, strconv.ErrRange) {
		return 0, argumentErrorf("resolution is out of possible range: %q", resolution)
	}
	if err != nil {
		return 0, argumentErrorf("invalid resolution format: %q (want WxH)", resolution)
	}
	if n <= 0 || n > maxDimension {
		return 0, argumentErrorf("resolution is out of possible range: %q (each side must be 1-%d)", resolution, maxDimension)
	}
	return n, nil
}

// rawFormat writes the pixel buffer as-is, one A, R, G, B byte quadruple per pixel.
const rawFormat = "argb"

// ValidateImageFormat checks that exported images can be encoded as format.
func ValidateImageFormat(format string) error {
	if strings.EqualFold(format, rawFormat) {
		return nil
	}
	if _, err := imaging.FormatFromExtension(format); err != nil {
		return argumentErrorf("unsupported image format: %s (want png, jpg, jpeg, gif, tif, tiff, bmp or %s)", format, rawFormat)
	}
	return nil
}

// ValidateQuality checks a JPEG quality setting.
func ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return argumentErrorf("quality must be between 1 and 100")
	}
	return nil
}

var partRangePattern = regexp.MustCompile(`^(\d+(-\d+)?)(,\s*\d+(-\d+)?)*$`)

// ValidatePartRange validates a part range string without knowing the part count.
func ValidatePartRange(rangeStr string) error {
	rangeStr = strings.TrimSpace(strings.ToLower(rangeStr))
	if rangeStr == "" || rangeStr == "all" {
		return nil
	}
	if !partRangePattern.MatchString(rangeStr) {
		return argumentErrorf("invalid part range format: %s", rangeStr)
	}
	return nil
}

// ParsePartRange returns the sorted 0-based part indices selected by
// rangeStr: "all", "2", "0-3" or comma-separated combinations.
func ParsePartRange(rangeStr string, totalParts int) ([]int, error) {
	rangeStr = strings.TrimSpace(strings.ToLower(rangeStr))

	if rangeStr == "" || rangeStr == "all" {
		parts := make([]int, totalParts)
		for i := range parts {
			parts[i] = i
		}
		return parts, nil
	}
	if err := ValidatePartRange(rangeStr); err != nil {
		return nil, err
	}

	partSet := make(map[int]bool)
	for _, item := range strings.Split(rangeStr, ",") {
		item = strings.TrimSpace(item)
		first, last, isRange := strings.Cut(item, "-")

		start, err := strconv.Atoi(first)
		if err != nil {
			return nil, argumentErrorf("invalid part number: %s", first)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(last); err != nil {
				return nil, argumentErrorf("invalid part number: %s", last)
			}
		}
		if start >= totalParts || end >= totalParts {
			return nil, argumentErrorf("part numbers out of range (0-%d): %s", totalParts-1, item)
		}
		if start > end {
			start, end = end, start
		}
		for i := start; i <= end; i++ {
			partSet[i] = true
		}
	}

	parts := make([]int, 0, len(partSet))
	for part := range partSet {
		parts = append(parts, part)
	}
	sort.Ints(parts)
	return parts, nil
}
