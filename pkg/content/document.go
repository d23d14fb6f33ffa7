package content

// Document is the raw metadata of a module document.
// Polymorphic sections are kept untyped and decoded by the Decoder.
type Document struct {
	ID            string                  `json:"id" yaml:"id" mapstructure:"id"`
	Title         string                  `json:"title" yaml:"title" mapstructure:"title"`
	Description   string                  `json:"description" yaml:"description" mapstructure:"description"`
	Order         any                     `json:"order" yaml:"order" mapstructure:"order"`
	Tags          []string                `json:"tags" yaml:"tags" mapstructure:"tags"`
	Welcome       string                  `json:"welcome" yaml:"welcome" mapstructure:"welcome"`
	Background    string                  `json:"background" yaml:"background" mapstructure:"background"`
	Requires      any                     `json:"requires" yaml:"requires" mapstructure:"requires"`
	Tasks         []TaskSpec              `json:"tasks" yaml:"tasks" mapstructure:"tasks"`
	Interactables []InteractableSpec      `json:"interactables" yaml:"interactables" mapstructure:"interactables"`
	Dialogues     map[string]DialogueSpec `json:"dialogues" yaml:"dialogues" mapstructure:"dialogues"`
}

// TaskSpec describes a task and its validator.
type TaskSpec struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Validate    any    `json:"validate" yaml:"validate" mapstructure:"validate"`
}

// InteractableSpec describes an interactable and its optional dialogue.
type InteractableSpec struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Dialogue string `json:"dialogue" yaml:"dialogue" mapstructure:"dialogue"`
	Requires any    `json:"requires" yaml:"requires" mapstructure:"requires"`
}

// DialogueSpec describes one dialogue tree.
type DialogueSpec struct {
	Task  string     `json:"task" yaml:"task" mapstructure:"task"`
	Entry any        `json:"entry" yaml:"entry" mapstructure:"entry"`
	Nodes []NodeSpec `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// NodeSpec describes a dialogue node. Next, when set, auto-advances the node.
type NodeSpec struct {
	ID      string       `json:"id" yaml:"id" mapstructure:"id"`
	Lines   []string     `json:"lines" yaml:"lines" mapstructure:"lines"`
	Choices []ChoiceSpec `json:"choices" yaml:"choices" mapstructure:"choices"`
	Next    string       `json:"next" yaml:"next" mapstructure:"next"`
}

// ChoiceSpec describes a choice and the edge it creates. An empty Next closes the dialogue.
type ChoiceSpec struct {
	Key     string `json:"key" yaml:"key" mapstructure:"key"`
	Text    string `json:"text" yaml:"text" mapstructure:"text"`
	Next    string `json:"next" yaml:"next" mapstructure:"next"`
	When    any    `json:"when" yaml:"when" mapstructure:"when"`
	Actions any    `json:"actions" yaml:"actions" mapstructure:"actions"`
}
