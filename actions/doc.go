// Package actions provides capability bundles that register into an
// agentloop.ActionRegistry: a rooted filesystem, plain HTTP requests and a
// rod-driven browser.
package actions
