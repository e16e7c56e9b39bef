package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Question describes one survey question as declared in the catalog YAML.
// ScaleWidth is the number of columns a grid question offers; the grid
// detector needs it to normalize variance against the maximal spread.
type Question struct {
	ID         string   `yaml:"id"`
	Type       string   `yaml:"type"`
	ScaleWidth int      `yaml:"scale_width,omitempty"`
	Rows       []string `yaml:"rows,omitempty"`
	OpenEnded  bool     `yaml:"open_ended,omitempty"`
}

// Survey groups the questions of one survey.
type Survey struct {
	ID        string     `yaml:"id"`
	Questions []Question `yaml:"questions"`
}

// Catalog holds every survey the engine knows about.
type Catalog struct {
	Surveys []Survey `yaml:"surveys"`
}

// LoadCatalog reads and parses the survey catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey catalog: %w", err)
	}

	return &catalog, nil
}

// Question finds a question by survey and question id.
func (c *Catalog) Question(surveyID, questionID string) (Question, bool) {
	for _, s := range c.Surveys {
		if s.ID != surveyID {
			continue
		}
		for _, q := range s.Questions {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return Question{}, false
}

// OpenEndedQuestions lists the open-ended question ids of a survey. The
// duplicate-answer detector only compares these.
func (c *Catalog) OpenEndedQuestions(surveyID string) []string {
	var ids []string
	for _, s := range c.Surveys {
		if s.ID != surveyID {
			continue
		}
		for _, q := range s.Questions {
			if q.OpenEnded || q.Type == QuestionOpenEnded {
				ids = append(ids, q.ID)
			}
		}
	}
	return ids
}
