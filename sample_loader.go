package oscplot

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultSamplePath is where the loader looks when no input path is given.
// It matches the file the generator tools write.
const DefaultSamplePath = "samples.txt"

// DefaultDelimiter separates sample tokens within a line.
const DefaultDelimiter = ' '

// MissingFileError is returned when the sample file does not exist. It is
// detected before opening so the caller can print a clean diagnostic and
// exit instead of surfacing an os.PathError.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("sample file does not exist: %q", e.Path)
}

// ParseError is returned when a non-empty token cannot be parsed as a
// float. Loading stops at the first bad token; no partial series is
// returned.
type ParseError struct {
	Token string
	Line  int // 1-based line in the input file
	Field int // 1-based non-empty field within the line
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse sample %q at line %d, field %d", e.Token, e.Line, e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadSamples reads the sample file at path and returns every value in
// left-to-right, top-to-bottom order. Each line is split on the delimiter;
// empty tokens (from repeated or trailing delimiters) are skipped.
func LoadSamples(path string, delimiter rune) ([]float64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &MissingFileError{Path: path}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	logger := logrus.WithFields(logrus.Fields{
		"tag":  "SampleLoader",
		"path": path,
	})

	samples := make([]float64, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		tokens := Filter(strings.Split(scanner.Text(), string(delimiter)), func(token string) bool {
			return len(token) > 0
		})

		for i, token := range tokens {
			value, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
			if err != nil {
				return nil, &ParseError{Token: token, Line: lineNum, Field: i + 1, Err: err}
			}
			samples = append(samples, value)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.WithError(err).Error("unable to read sample file")
		return nil, err
	}

	logger.WithField("count", len(samples)).Debug("loaded samples")
	return samples, nil
}

// LoadSeries is LoadSamples wrapped into a Series.
func LoadSeries(path string, delimiter rune) (Series, error) {
	samples, err := LoadSamples(path, delimiter)
	if err != nil {
		return Series{}, err
	}

	return NewSeries(samples), nil
}
