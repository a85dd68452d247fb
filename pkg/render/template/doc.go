// Package template defines the text template seam used to produce generated
// wrapper modules. The gotemplate subpackage builds go-template engines that
// satisfy it.
package template
