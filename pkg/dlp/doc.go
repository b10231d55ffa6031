/*
Package dlp sanitizes memory content before it is ever written to disk.

A Sanitizer owns an ordered list of (regex, label) patterns. Sanitize runs
each pattern over the current, possibly already-rewritten text and replaces
every match with the literal `{{SECRET:<LABEL>}}`. The default pattern set
covers OpenAI, Anthropic, GitHub, Stripe, AWS, Slack, and Google API keys,
database connection strings with embedded credentials, PEM private-key
blocks, and long bearer tokens.

Sanitize is idempotent: running it twice on its own output yields the same
text and an empty detected set, since no pattern matches the replacement
token syntax. Pattern order is fixed at construction and is the documented
tie-break when two patterns could match the same substring — earlier
patterns win.

Custom patterns may be appended with AddPattern without disturbing the
existing order.
*/
package dlp
