// Command lessonweave validates, visualizes, plays and serves lessonweave courses.
package main

func main() {
	Execute()
}
