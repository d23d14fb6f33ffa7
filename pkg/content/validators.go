package content

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/task"
)

type validatorSpec struct {
	Type     string `mapstructure:"type"`
	Min      any    `mapstructure:"min"`
	Keywords any    `mapstructure:"keywords"`
}

// DecodeValidator decodes a validator map, or a list of them run in sequence.
// Tasks without a validator only reject empty submissions.
func (d *Decoder) DecodeValidator(raw any) (domain.Validator, error) {
	if raw == nil {
		return task.Length(1), nil
	}
	if items, ok := asList(raw); ok {
		validators := make([]domain.Validator, 0, len(items))
		for i, item := range items {
			v, err := d.decodeValidator(item)
			if err != nil {
				return nil, fmt.Errorf("validate[%d]: %w", i, err)
			}
			validators = append(validators, v)
		}
		return task.Sequence(validators...), nil
	}
	return d.decodeValidator(raw)
}

func (d *Decoder) decodeValidator(raw any) (domain.Validator, error) {
	var spec validatorSpec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return nil, err
	}
	switch spec.Type {
	case "length":
		n, err := toInt(spec.Min)
		if err != nil {
			return nil, fmt.Errorf("length.min: %w", err)
		}
		return task.Length(n), nil
	case "words", "word_count":
		n, err := toInt(spec.Min)
		if err != nil {
			return nil, fmt.Errorf("words.min: %w", err)
		}
		return task.WordCount(n), nil
	case "keywords":
		kws, err := toStrings(spec.Keywords)
		if err != nil {
			return nil, fmt.Errorf("keywords: %w", err)
		}
		return task.Keywords(kws...), nil
	default:
		return nil, fmt.Errorf("unknown validator type %q", spec.Type)
	}
}
