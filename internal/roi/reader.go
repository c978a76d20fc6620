package roi

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Prediction is the border predictor output for one resampled ROI.
// Both slices have the same length (the number of resampled points).
type Prediction struct {
	Splitter []float64
	Domain   []float64
}

// Input is a component together with the per-sample network output
// that is needed to segment its ROIs
type Input struct {
	Component   *Component
	Classes     map[string]int // only samples that carry a class label
	Predictions map[string]Prediction
}

// floatList decodes both a JSON array of numbers and whitespace
// separated numbers in XML character data
type floatList []float64

func (f *floatList) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, (*[]float64)(f))
}

func (f *floatList) UnmarshalText(b []byte) error {
	fields := strings.Fields(string(b))
	l := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		l[i] = v
	}
	*f = l
	return nil
}

type fileRange[T int | float64] struct {
	Begin T `json:"begin" xml:"begin,attr"`
	End   T `json:"end" xml:"end,attr"`
}

type fileROI struct {
	I      floatList          `json:"i" xml:"i"`
	Scan   fileRange[int]     `json:"scan" xml:"scan"`
	Rt     fileRange[float64] `json:"rt" xml:"rt"`
	MzMean float64            `json:"mzmean" xml:"mzmean,attr"`
}

type fileSample struct {
	Name     string    `json:"name" xml:"name,attr"`
	Shift    int       `json:"shift" xml:"shift,attr"`
	Group    int       `json:"group" xml:"group,attr"`
	Class    *int      `json:"class,omitempty" xml:"class,attr,omitempty"`
	ROI      fileROI   `json:"roi" xml:"roi"`
	Splitter floatList `json:"splitter" xml:"splitter"`
	Domain   floatList `json:"domain" xml:"domain"`
}

type fileComponent struct {
	Samples []fileSample `json:"samples" xml:"sample"`
}

type fileContent struct {
	XMLName    xml.Name        `json:"-" xml:"components"`
	Version    string          `json:"version" xml:"version,attr"`
	Components []fileComponent `json:"components" xml:"component"`
}

// ReadFile reads a component file. Files with extension .xml are
// parsed as XML, all others as JSON.
func ReadFile(name string) ([]Input, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(name), ".xml") {
		return ReadXML(f)
	}
	return ReadJSON(f)
}

// ReadJSON reads components from JSON content
func ReadJSON(reader io.Reader) ([]Input, error) {
	var content fileContent
	d := json.NewDecoder(reader)
	if err := d.Decode(&content); err != nil {
		return nil, err
	}
	return content.inputs()
}

// ReadXML reads components from XML content
func ReadXML(reader io.Reader) ([]Input, error) {
	var content fileContent
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&content); err != nil {
		return nil, err
	}
	return content.inputs()
}

func (c *fileContent) inputs() ([]Input, error) {
	inputs := make([]Input, 0, len(c.Components))
	for n, fc := range c.Components {
		in, err := fc.input()
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", n, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (fc *fileComponent) input() (Input, error) {
	n := len(fc.Samples)
	in := Input{
		Component: &Component{
			Samples:  make([]string, 0, n),
			ROIs:     make([]*ROI, 0, n),
			Shifts:   make([]int, 0, n),
			Grouping: make([]int, 0, n),
		},
		Classes:     make(map[string]int),
		Predictions: make(map[string]Prediction, n),
	}
	for _, s := range fc.Samples {
		if len(s.Splitter) != len(s.Domain) {
			return in, fmt.Errorf("%w: sample %s has %d splitter and %d domain values",
				ErrInvalidComponent, s.Name, len(s.Splitter), len(s.Domain))
		}
		r := &ROI{
			I:      s.ROI.I,
			Scan:   Range[int]{Begin: s.ROI.Scan.Begin, End: s.ROI.Scan.End},
			Rt:     Range[float64]{Begin: s.ROI.Rt.Begin, End: s.ROI.Rt.End},
			MzMean: s.ROI.MzMean,
		}
		in.Component.Samples = append(in.Component.Samples, s.Name)
		in.Component.ROIs = append(in.Component.ROIs, r)
		in.Component.Shifts = append(in.Component.Shifts, s.Shift)
		in.Component.Grouping = append(in.Component.Grouping, s.Group)
		if s.Class != nil {
			in.Classes[s.Name] = *s.Class
		}
		in.Predictions[s.Name] = Prediction{Splitter: s.Splitter, Domain: s.Domain}
	}
	return in, in.Component.Validate()
}
