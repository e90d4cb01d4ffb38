// Package acceptance holds the end-to-end feature suite of the report renderers.
package acceptance
