/*
Package domain contains the core data model of the dialogue and progression engines.

It is kept free of I/O and persistence concerns: stores, loaders and transports live in
the adapters and consume these types.

# Key Entities

  - Field: a content value that is either a literal or computed from the visit Context.
  - DialogueTree: authored nodes, choice-keyed edges, entry configuration and node definitions.
  - Condition: a predicate tree over task, module and interactable state.
  - ChoiceAction: an effect executed when a choice is taken.
  - UnlockRequirement: a predicate tree gating modules and interactables.
  - Progress: the persisted per-profile document (module progress and progression map).
  - Module and Task: authored content with pure submission validators.
*/
package domain
