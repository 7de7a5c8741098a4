package nn

import "fmt"

// InputKind distinguishes flat activations from image-like activations.
type InputKind int

// Input kinds.
const (
	KindFeedForward InputKind = iota
	KindConvolutional
)

// InputType describes the activations flowing into a layer.
//
// Shape inference walks the graph with InputTypes so that nIn of
// convolution and dense layers never has to be declared by hand.
type InputType struct {
	Kind     InputKind
	Size     int // feed-forward width
	Height   int // convolutional
	Width    int // convolutional
	Channels int // convolutional
}

// FeedForward returns a flat input of n features.
func FeedForward(n int) InputType {
	return InputType{Kind: KindFeedForward, Size: n}
}

// Convolutional returns an image input of height x width x channels.
func Convolutional(height, width, channels int) InputType {
	return InputType{Kind: KindConvolutional, Height: height, Width: width, Channels: channels}
}

// Flat returns the number of features after flattening.
func (t InputType) Flat() int {
	if t.Kind == KindConvolutional {
		return t.Height * t.Width * t.Channels
	}
	return t.Size
}

func (t InputType) validate() error {
	switch t.Kind {
	case KindFeedForward:
		if t.Size <= 0 {
			return fmt.Errorf("invalid feed-forward size %d", t.Size)
		}
	case KindConvolutional:
		if t.Height <= 0 || t.Width <= 0 || t.Channels <= 0 {
			return fmt.Errorf("invalid convolutional input %dx%dx%d", t.Height, t.Width, t.Channels)
		}
	default:
		return fmt.Errorf("unknown input kind %d", t.Kind)
	}
	return nil
}

func (t InputType) String() string {
	if t.Kind == KindConvolutional {
		return fmt.Sprintf("%dx%dx%d", t.Height, t.Width, t.Channels)
	}
	return fmt.Sprintf("ff(%d)", t.Size)
}

// mergeInputs combines the types of several inputs into one.
//
// Feed-forward widths add up. Convolutional inputs must agree on height
// and width and have their channels stacked.
func mergeInputs(types []InputType) (InputType, error) {
	if len(types) == 1 {
		return types[0], nil
	}

	first := types[0]
	if first.Kind == KindFeedForward {
		total := 0
		for _, t := range types {
			if t.Kind != KindFeedForward {
				return InputType{}, fmt.Errorf("cannot merge %v with %v", first, t)
			}
			total += t.Size
		}
		return FeedForward(total), nil
	}

	channels := 0
	for _, t := range types {
		if t.Kind != KindConvolutional || t.Height != first.Height || t.Width != first.Width {
			return InputType{}, fmt.Errorf("cannot merge %v with %v", first, t)
		}
		channels += t.Channels
	}
	return Convolutional(first.Height, first.Width, channels), nil
}

// convOutputSize is the spatial output of a sliding window:
// (in + 2*pad - kernel) / stride + 1.
func convOutputSize(in, kernel, stride, pad int) (int, error) {
	span := in + 2*pad - kernel
	if span < 0 {
		return 0, fmt.Errorf("kernel %d larger than padded input %d", kernel, in+2*pad)
	}
	return span/stride + 1, nil
}
