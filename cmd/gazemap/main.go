// gazemap maps a live eye tracker's gaze onto a fixed reference image and
// serves a web monitor over the result stream.
package main

func main() {
	Execute()
}
