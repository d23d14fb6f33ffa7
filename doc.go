/*
Package lessonweave is a dialogue and progression engine for self-paced lessons.

Content is organized in modules. A module carries tasks the learner submits
work for, interactables the learner talks to, and dialogue trees whose nodes,
choices and transitions may be computed from the learner's progress at visit
time. Modules and interactables are gated by unlock requirements (completed
tasks, completed modules, passwords, named predicates), and completing work
propagates unlocks across the catalog.

# Concept

The Engine is stateless with respect to learners. Progress lives in a
ports.ProgressStore, one document per profile, and every Session call loads,
mutates and saves that document under a per-profile lock. The host owns I/O:
it renders nodes and choices, collects submissions and decides what a
call-function action does.

# Usage

	eng, err := lessonweave.New("./course")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	s := eng.Session("learner-42")
	if _, err := s.Initialize(ctx); err != nil {
		log.Fatal(err)
	}
	if _, err := s.Enter(ctx, "basics"); err != nil {
		log.Fatal(err)
	}

	conv, err := s.TalkTo(ctx, "basics", "mentor")
	if err != nil {
		log.Fatal(err)
	}
	for !conv.Closed() {
		fmt.Println(strings.Join(conv.Node().Lines, "\n"))
		choices := conv.Choices()
		if len(choices) == 0 {
			_ = conv.Advance(ctx)
			continue
		}
		_ = conv.Choose(ctx, choices[0].Key)
	}

	result, report, err := s.SubmitTask(ctx, "basics", "hello", "my answer")

# Content

See package content for the authoring format. Any ports.ModuleLoader can be
injected with WithLoader; the default reads a Loam repository.
*/
package lessonweave
