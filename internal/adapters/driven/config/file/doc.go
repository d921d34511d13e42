// Package file stores docagent configuration under the config directory:
// config.toml for settings and prompts/*.txt for the LLM templates.
package file
