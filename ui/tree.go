// Package ui draws trees and boxes for terminal output.
package ui

import (
	"strings"
	"unicode/utf8"
)

// Tree connectors
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   "
	TreeIndent     = "    "
)

// Box borders
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// Node is a labelled tree entry.
type Node struct {
	Label    string
	Children []*Node
}

// Add appends a child and returns it.
func (n *Node) Add(label string) *Node {
	child := &Node{Label: label}
	n.Children = append(n.Children, child)
	return child
}

// Render draws roots and their descendants, one line per node.
func Render(roots []*Node) string {
	var sb strings.Builder
	var walk func(nodes []*Node, depth int, parentIsLast []bool)
	walk = func(nodes []*Node, depth int, parentIsLast []bool) {
		for i, n := range nodes {
			last := i == len(nodes)-1
			sb.WriteString(BuildTreePrefix(depth, last, parentIsLast))
			sb.WriteString(n.Label)
			sb.WriteString("\n")
			walk(n.Children, depth+1, append(parentIsLast, last))
		}
	}
	walk(roots, 1, nil)
	return sb.String()
}

// BuildTreePrefix returns the connector for a node at depth. parentIsLast holds, per
// ancestor level, whether that ancestor was the last of its siblings.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}
	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}
	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}

// Box frames lines under a title. The box grows to fit the title; longer lines are truncated.
func Box(title string, lines []string, width int) string {
	if least := utf8.RuneCountInString(title) + 4; width < least {
		width = least
	}
	var sb strings.Builder
	sb.WriteString(BoxTopLeft + strings.Repeat(BoxHorizontal, width-2) + BoxTopRight + "\n")
	sb.WriteString(boxLine(title, width))
	sb.WriteString(BoxTeeRight + strings.Repeat(BoxHorizontal, width-2) + BoxTeeLeft + "\n")
	for _, line := range lines {
		sb.WriteString(boxLine(line, width))
	}
	sb.WriteString(BoxBottomLeft + strings.Repeat(BoxHorizontal, width-2) + BoxBottomRight + "\n")
	return sb.String()
}

func boxLine(content string, width int) string {
	maxLen := width - 4
	n := utf8.RuneCountInString(content)
	if n > maxLen && maxLen > 3 {
		content = string([]rune(content)[:maxLen-3]) + "..."
		n = maxLen
	} else if n > maxLen {
		content, n = "", 0
	}
	return BoxVertical + " " + content + strings.Repeat(" ", maxLen-n+1) + BoxVertical + "\n"
}
