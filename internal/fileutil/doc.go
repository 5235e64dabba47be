// Package fileutil holds small filesystem helpers shared by commands.
package fileutil
