// Package script splits a mixed-language script into titled sections and
// each section body into typed sub-blocks.
//
// A script starts with the section marker "! ## " followed by the section
// title; every later line starting with the marker opens a new section.
// Inside a body, lines starting with "!" are commentary, lines starting
// with "//" are host code and everything else is engine code. Adjacent
// lines of the same kind merge into one sub-block.
package script
