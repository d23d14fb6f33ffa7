package content

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/registry"
)

// Decoder turns module documents into domain modules.
type Decoder struct {
	registry *registry.Registry
}

// Option configures the Decoder.
type Option func(*Decoder)

// WithRegistry sets the registry used to resolve named custom predicates.
func WithRegistry(reg *registry.Registry) Option {
	return func(d *Decoder) {
		if reg != nil {
			d.registry = reg
		}
	}
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{registry: registry.NewRegistry()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var frontmatterDelim = []byte("---")

// Parse decodes a YAML document, or a Markdown document with YAML frontmatter
// whose body becomes the background.
func (d *Decoder) Parse(data []byte) (*domain.Module, error) {
	meta, body := splitFrontmatter(data)
	var doc Document
	if err := yaml.Unmarshal(meta, &doc); err != nil {
		return nil, domain.WrapError(domain.CodeModuleLoadFailed, "invalid module document", err)
	}
	return d.Decode(doc, body)
}

func splitFrontmatter(data []byte) ([]byte, string) {
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, frontmatterDelim) {
		return data, ""
	}
	rest := trimmed[len(frontmatterDelim):]
	end := bytes.Index(rest, append([]byte("\n"), frontmatterDelim...))
	if end < 0 {
		return data, ""
	}
	meta := rest[:end]
	body := rest[end+1+len(frontmatterDelim):]
	return meta, string(bytes.TrimSpace(body))
}

// Decode converts a document into a module. body, if not empty, is used as the
// background when the document has none.
func (d *Decoder) Decode(doc Document, body string) (*domain.Module, error) {
	if doc.ID == "" {
		return nil, domain.NewError(domain.CodeModuleInvalidStructure, "module id is required")
	}
	invalid := func(err error) error {
		return domain.WrapError(domain.CodeModuleInvalidStructure, fmt.Sprintf("module %s", doc.ID), err)
	}

	manifest, err := ManifestOf(doc)
	if err != nil {
		return nil, err
	}
	m := &domain.Module{
		Manifest:   manifest,
		Background: doc.Background,
		Welcome:    doc.Welcome,
		Dialogues:  make(map[string]*domain.DialogueTree, len(doc.Dialogues)),
	}
	if m.Background == "" {
		m.Background = body
	}

	if m.Requirement, err = d.DecodeRequirement(doc.Requires, doc.ID); err != nil {
		return nil, invalid(fmt.Errorf("requires: %w", err))
	}

	for i, ts := range doc.Tasks {
		if ts.ID == "" {
			return nil, invalid(fmt.Errorf("tasks[%d]: id is required", i))
		}
		v, err := d.DecodeValidator(ts.Validate)
		if err != nil {
			return nil, invalid(fmt.Errorf("task %s: %w", ts.ID, err))
		}
		title := ts.Title
		if title == "" {
			title = ts.ID
		}
		m.Tasks = append(m.Tasks, domain.Task{ID: ts.ID, Title: title, Description: ts.Description, Validate: v})
	}

	for i, is := range doc.Interactables {
		if is.ID == "" {
			return nil, invalid(fmt.Errorf("interactables[%d]: id is required", i))
		}
		req, err := d.DecodeRequirement(is.Requires, doc.ID)
		if err != nil {
			return nil, invalid(fmt.Errorf("interactable %s: %w", is.ID, err))
		}
		name := is.Name
		if name == "" {
			name = is.ID
		}
		m.Interactables = append(m.Interactables, domain.Interactable{ID: is.ID, Name: name, Dialogue: is.Dialogue, Requirement: req})
	}

	for id, ds := range doc.Dialogues {
		tree, err := d.DecodeDialogue(id, ds)
		if err != nil {
			return nil, invalid(fmt.Errorf("dialogue %s: %w", id, err))
		}
		m.Dialogues[id] = tree
	}
	return m, nil
}

// DecodeDialogue converts a dialogue spec into a tree. Each choice becomes an
// edge; a node's next becomes an auto-advance definition.
func (d *Decoder) DecodeDialogue(id string, ds DialogueSpec) (*domain.DialogueTree, error) {
	tree := &domain.DialogueTree{ID: id, TaskID: ds.Task}

	for i, ns := range ds.Nodes {
		if ns.ID == "" {
			return nil, fmt.Errorf("nodes[%d]: id is required", i)
		}
		node := domain.DialogueNode{ID: ns.ID, Lines: ns.Lines}
		for j, cs := range ns.Choices {
			key := cs.Key
			if key == "" {
				key = strconv.Itoa(j + 1)
			}
			text := cs.Text
			if text == "" {
				text = key
			}
			node.Choices = append(node.Choices, domain.Choice{Key: key, Text: text})

			edge := domain.DialogueEdge{From: ns.ID, ChoiceKey: key, Next: domain.To(cs.Next)}
			if cs.When != nil {
				c, err := d.DecodeCondition(cs.When)
				if err != nil {
					return nil, fmt.Errorf("node %s choice %s: %w", ns.ID, key, err)
				}
				edge.Condition = &c
			}
			actions, err := d.DecodeActions(cs.Actions)
			if err != nil {
				return nil, fmt.Errorf("node %s choice %s: %w", ns.ID, key, err)
			}
			edge.Actions = actions
			tree.Edges = append(tree.Edges, edge)
		}
		tree.Nodes = append(tree.Nodes, node)

		if ns.Next != "" {
			if tree.Definitions == nil {
				tree.Definitions = make(map[string]domain.NodeDefinition)
			}
			tree.Definitions[ns.ID] = domain.NodeDefinition{ID: ns.ID, Next: domain.Literal(domain.To(ns.Next))}
		}
	}

	entry, err := d.decodeEntry(ds.Entry)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	tree.Entry = entry
	return tree, nil
}

type entrySpec struct {
	Cases []struct {
		When any    `mapstructure:"when"`
		Node string `mapstructure:"node"`
	} `mapstructure:"cases"`
	Default string `mapstructure:"default"`
}

func (d *Decoder) decodeEntry(raw any) (domain.Entry, error) {
	switch v := raw.(type) {
	case nil:
		return domain.Entry{}, nil
	case string:
		return domain.Entry{NodeID: v}, nil
	}

	var spec entrySpec
	if err := decodeMap(raw, &spec); err != nil {
		return domain.Entry{}, err
	}
	if spec.Default == "" {
		return domain.Entry{}, fmt.Errorf("entry configuration needs a default node")
	}
	cfg := &domain.EntryConfig{Default: spec.Default}
	for i, c := range spec.Cases {
		cond, err := d.DecodeCondition(c.When)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("cases[%d]: %w", i, err)
		}
		cfg.Cases = append(cfg.Cases, domain.EntryCase{Condition: cond, NodeID: c.Node})
	}
	return domain.Entry{Config: cfg}, nil
}

// ManifestOf extracts the manifest of a document without decoding the rest.
func ManifestOf(doc Document) (domain.Manifest, error) {
	order, err := toInt(doc.Order)
	if err != nil {
		return domain.Manifest{}, domain.WrapError(domain.CodeModuleInvalidStructure, fmt.Sprintf("module %s: order", doc.ID), err)
	}
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	return domain.Manifest{ID: doc.ID, Title: title, Description: doc.Description, Order: order, Tags: doc.Tags}, nil
}
