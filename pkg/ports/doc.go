/*
Package ports defines the driven ports (interfaces) of the lessonweave engine.

These interfaces decouple the dialogue and progression engines from external
implementations, allowing them to work with various content sources and
storage backends.

# Key Interfaces

  - ModuleLoader: Discovers and loads authored modules by id (e.g., from Loam or Memory).
  - ProgressStore: Persists and loads the progress document of a player profile.
  - DistributedLocker: Provides distributed locking for concurrent profile access.
*/
package ports
