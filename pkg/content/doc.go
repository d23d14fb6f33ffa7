/*
Package content decodes the authoring format of lessonweave modules.

A module is one document: YAML metadata (either a whole YAML file or Markdown
frontmatter) describing the manifest, welcome text, tasks, interactables,
unlock requirement and dialogue trees. The Markdown body, when present, is the
module background.

	id: intro
	title: Getting Started
	order: 1
	requires: { module: basics }
	tasks:
	  - id: hello
	    title: Say hello
	    validate:
	      - { type: length, min: 20 }
	      - { type: keywords, keywords: [hello] }
	interactables:
	  - id: guide
	    name: The Guide
	    dialogue: guide
	dialogues:
	  guide:
	    task: hello
	    entry:
	      cases:
	        - { when: { task_complete: hello }, node: thanks }
	      default: greet
	    nodes:
	      - id: greet
	        lines: ["Welcome!"]
	        choices:
	          - key: accept
	            text: "I'll do it."
	            actions: [{ accept_task: hello }]
	          - key: bye
	            text: "Later."

Conditions, actions, requirements and validators are small polymorphic maps
decoded with mapstructure. Custom predicates and call-function handlers are
referenced by name and resolved through a registry when they run.
*/
package content
