package captcha

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/captcha")

// ErrUnresolved means no read combination produced two plausible
// operands. The caller should fail its login step, not retry here.
var ErrUnresolved = errors.New("captcha could not be resolved")

// CropLayout holds the pixel windows the two operands are cut from.
// The values are tuned to the portal's captcha rendering; a layout
// change only requires touching these, not the resolution logic.
type CropLayout struct {
	Top    int
	Bottom int
	// x offset of the left operand
	LeftX int
	// x offsets of the right operand, depending on whether the left
	// operand took one or two digit widths
	RightUnitX  int
	RightTwiceX int
	// window widths for a single- and double-digit read
	UnitWidth  int
	TwiceWidth int
}

var DefaultLayout = CropLayout{
	Top:         7,
	Bottom:      30,
	LeftX:       10,
	RightUnitX:  80,
	RightTwiceX: 90,
	UnitWidth:   25,
	TwiceWidth:  40,
}

// Solver decomposes the portal captcha ("A + B" rendered as two
// digit groups) into per-operand crops, reads each through OCR and
// returns the sum.
type Solver struct {
	ocr         Recognizer
	layout      CropLayout
	artifactDir string
}

func NewSolver(ocr Recognizer, layout CropLayout, artifactDir string) Solver {
	return Solver{
		ocr:         ocr,
		layout:      layout,
		artifactDir: artifactDir,
	}
}

type cropSet struct {
	leftUnit   string
	leftTwice  string
	rightUnit  string
	rightTwice string
}

func (s Solver) Solve(ctx context.Context, imagePath string) (int, error) {
	ctx, span := tracer.Start(ctx, "Solve")
	defer span.End()
	span.SetAttributes(attribute.String("image", imagePath))

	src, err := imaging.Open(imagePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open captcha image")
		return 0, err
	}

	crops, err := s.prepareCrops(src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prepare crops")
		return 0, err
	}

	answer, err := s.resolve(ctx, crops)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("answer", answer))
	return answer, nil
}

// crops each operand window, converts to grayscale for legibility and
// persists everything under the artifact dir so a bad solve can be
// inspected after the fact.
func (s Solver) prepareCrops(src image.Image) (cropSet, error) {
	l := s.layout
	crops := cropSet{
		leftUnit:   filepath.Join(s.artifactDir, "left_unit.png"),
		leftTwice:  filepath.Join(s.artifactDir, "left_twice.png"),
		rightUnit:  filepath.Join(s.artifactDir, "right_unit.png"),
		rightTwice: filepath.Join(s.artifactDir, "right_twice.png"),
	}

	err := os.MkdirAll(s.artifactDir, 0777)
	if err != nil {
		return cropSet{}, err
	}

	windows := []struct {
		rect image.Rectangle
		path string
	}{
		{image.Rect(l.LeftX, l.Top, l.LeftX+l.UnitWidth, l.Bottom), crops.leftUnit},
		{image.Rect(l.LeftX, l.Top, l.LeftX+l.TwiceWidth, l.Bottom), crops.leftTwice},
		{image.Rect(l.RightUnitX, l.Top, l.RightUnitX+l.TwiceWidth, l.Bottom), crops.rightUnit},
		{image.Rect(l.RightTwiceX, l.Top, l.RightTwiceX+l.TwiceWidth, l.Bottom), crops.rightTwice},
	}
	for _, w := range windows {
		enhanced := imaging.Grayscale(imaging.Crop(src, w.rect))
		err := imaging.Save(enhanced, w.path)
		if err != nil {
			return cropSet{}, err
		}
	}

	return crops, nil
}

// the OCR model cannot reliably tell a single- from a double-digit
// numeral at this crop size, so the likelier double-digit read is
// attempted first and implausible results (a "double digit" read
// under 10) fall back to the single-digit windows.
func (s Solver) resolve(ctx context.Context, crops cropSet) (int, error) {
	leftTwice, ok := s.read(ctx, crops.leftTwice)

	switch {
	case ok && leftTwice >= 10:
		right, rok := s.read(ctx, crops.rightTwice)
		if !rok {
			return 0, ErrUnresolved
		}
		return leftTwice + right, nil

	case ok:
		// under-read, the window probably only captured one digit
		left, lok := s.read(ctx, crops.leftUnit)
		if !lok {
			return 0, ErrUnresolved
		}
		right, rok := s.read(ctx, crops.rightTwice)
		if rok && right > 10 {
			return left + right, nil
		}
		right, rok = s.read(ctx, crops.rightUnit)
		if !rok {
			return 0, ErrUnresolved
		}
		return left + right, nil

	default:
		left, lok := s.read(ctx, crops.leftUnit)
		if !lok {
			return 0, ErrUnresolved
		}
		right, rok := s.read(ctx, crops.rightUnit)
		if !rok {
			return 0, ErrUnresolved
		}
		return left + right, nil
	}
}

func (s Solver) read(ctx context.Context, path string) (int, bool) {
	raw, err := s.ocr.Recognize(ctx, path)
	if err != nil {
		slog.WarnContext(ctx, "ocr read failed", "crop", filepath.Base(path), "err", err)
		return 0, false
	}

	digits := stripNonDigits(raw)
	if digits == "" {
		slog.DebugContext(ctx, "ocr read not numeric", "crop", filepath.Base(path), "raw", raw)
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	slog.DebugContext(ctx, "ocr read", "crop", filepath.Base(path), "raw", raw, "value", n)
	return n, true
}

func stripNonDigits(s string) string {
	var out strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out.WriteRune(r)
		}
	}
	return out.String()
}
