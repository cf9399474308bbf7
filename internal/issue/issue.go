// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/graftlabs/graft/pkg/fault"
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue is a remediation page for one fault code, shown by 'graft explain'.
type Issue struct {
	code     fault.Code  // code used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links for this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Code() fault.Code {
	return i.code
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	entityNotFoundIssue = &Issue{
		code: fault.CodeEntityNotFound,
		mdMsg: `
# Entity type not found!

The reference names an entity type that no loaded plugin registers, or pins
a version that was never registered.

## Things you can try:
- List every registered entity type and its versions:
~~~
$ graft entity list
~~~

- Check for typos in the reference (ids are lowercase snake_case)
- Drop the version pin to use the highest registered version:
~~~
$ graft run domain dns_lookup        # instead of domain@2.0.0
~~~

- Check the startup log for plugins that failed to load. A plugin that
  fails registers nothing, including its entity types.`,
	}

	transformNotFoundIssue = &Issue{
		code: fault.CodeTransformNotFound,
		mdMsg: `
# Transform not found!

No transform with that label applies to the resolved entity type and version.
A transform only applies when its version constraint matches the version you
resolved, so a transform that exists for domain@1.0.0 can still be missing
for domain@2.0.0.

## Things you can try:
- List the transforms that apply to the type you resolved:
~~~
$ graft entity show domain@2.0.0
~~~

- Check for typos in the transform label
- If the transform is registered with a narrower constraint, pin the
  version it supports:
~~~
$ graft run domain@1.0.0 dns_lookup
~~~`,
	}

	transformCollisionIssue = &Issue{
		code: fault.CodeTransformCollision,
		mdMsg: `
# Transform collision!

Two transforms were registered with the same label for the same target over
overlapping version ranges. The runtime refuses the second registration
because resolution would become ambiguous, and the plugin that carried it
loads nothing at all.

## Things you can try:
- Rename the label of one of the colliding transforms
- Make the version constraints disjoint, for example ` + "`<2.0.0`" + ` and
  ` + "`>=2.0.0`" + `
- Remove one of the plugins that register the duplicate
- A typed transform may share a label with a wildcard transform; only
  same-target overlaps collide`,
	}

	duplicateEntityIssue = &Issue{
		code: fault.CodeDuplicateEntity,
		mdMsg: `
# Duplicate entity type!

An entity type with this exact id and version is already registered. Each
id@version pair may be registered once, and the plugin that carried the
duplicate loads nothing at all.

## Things you can try:
- Bump the version if the descriptor changed:
~~~
version: "1.1.0"
~~~

- Rename the id if two plugins genuinely define different types
- Remove one of the plugins that register the same id@version
- Note that ` + "`1.0`" + ` and ` + "`1.0.0`" + ` are the same version; partial versions
  are normalized before comparison`,
	}

	configInvalidIssue = &Issue{
		code: fault.CodeConfigInvalid,
		mdMsg: `
# Invalid settings!

Setting resolution failed for the transform you tried to run. Common causes
are a required setting with no value in any layer and an override for a
setting nothing declares.

## How settings resolve (lowest to highest):
1. Defaults declared by the entity type or transform
2. Persisted global settings
3. Persisted per-transform settings
4. Per-invocation overrides

## Things you can try:
- Inspect what is persisted:
~~~
$ graft settings get
$ graft settings get domain/dns_lookup
~~~

- Persist the missing value:
~~~
$ graft settings set api_key "..."
$ graft settings set domain/dns_lookup resolver "1.1.1.1"
~~~

- Check the spelling of override names against the declared settings:
~~~
$ graft entity show domain
~~~`,
	}

	dependencyMissingIssue = &Issue{
		code: fault.CodeDependencyMissing,
		mdMsg: `
# Missing dependency!

The transform declares an external tool it needs on PATH, and the tool was
not found. Dependencies are checked before the script starts so a missing
tool fails fast instead of halfway through.

## Things you can try:
- Install the tool named in the error message
- Check that its directory is on PATH for the process running graft
- If the dependency is optional in practice, remove it from the
  transform's ` + "`deps`" + ` list`,
	}

	transformTimeoutIssue = &Issue{
		code: fault.CodeTransformTimeout,
		mdMsg: `
# Transform timed out!

The run hit its deadline and was stopped. Items streamed before the
deadline were already delivered; the run still counts as failed.

## Things you can try:
- Pass a larger timeout for this invocation:
~~~
$ graft run domain dns_lookup example.com --timeout 2m
~~~

- Raise the default for runs that set no timeout of their own, in
  ~/.config/graft/config.cue:
~~~cue
default_timeout: "5m"
~~~

- Check whether the transform's upstream service is slow or unreachable`,
	}

	transformFailedIssue = &Issue{
		code: fault.CodeTransformFailed,
		mdMsg: `
# Transform failed!

The transform reported an error while running. For script transforms this
usually means the script exited non-zero or wrote a line that is not a
valid node object.

## Things you can try:
- Re-run with debug logging to see the script's stderr:
~~~
$ GRAFT_LOG_LEVEL=debug graft run domain dns_lookup example.com
~~~

- Check that every stdout line the script emits is a single JSON object
  with at least ` + "`type`" + ` and ` + "`label`" + ` fields
- Test the script body in a shell with the same input:
~~~
$ GRAFT_INPUT=example.com sh -c '<script body>'
~~~`,
	}

	networkErrorIssue = &Issue{
		code: fault.CodeNetworkError,
		mdMsg: `
# Network error!

The transform could not reach an upstream service.

## Things you can try:
- Check your connectivity and any proxy settings
- Verify the service endpoint the transform is configured with:
~~~
$ graft settings get <target>/<label>
~~~

- Retry; transient DNS and connection resets are common
- If the service moved, update the endpoint setting`,
	}

	rateLimitedIssue = &Issue{
		code: fault.CodeRateLimited,
		mdMsg: `
# Rate limited!

An upstream service is throttling requests. The service is working; it is
telling you to slow down.

## Things you can try:
- Wait and retry; most limits reset within a minute
- Reduce concurrent runs that hit the same service
- Use an API key with a higher quota if the service offers one:
~~~
$ graft settings set api_key "..."
~~~`,
	}

	authFailedIssue = &Issue{
		code: fault.CodeAuthFailed,
		mdMsg: `
# Authentication failed!

An upstream service rejected the credentials the transform presented.

## Things you can try:
- Check that the credential setting is present and current:
~~~
$ graft settings get
~~~

- Rotate the key with the service and persist the new value:
~~~
$ graft settings set api_key "..."
~~~

- Secret settings are persisted but never echoed back in listings; an
  empty-looking secret may still hold a stale value, so set it again`,
	}

	issues = map[fault.Code]*Issue{
		entityNotFoundIssue.Code():     entityNotFoundIssue,
		transformNotFoundIssue.Code():  transformNotFoundIssue,
		transformCollisionIssue.Code(): transformCollisionIssue,
		duplicateEntityIssue.Code():    duplicateEntityIssue,
		configInvalidIssue.Code():      configInvalidIssue,
		dependencyMissingIssue.Code():  dependencyMissingIssue,
		transformTimeoutIssue.Code():   transformTimeoutIssue,
		transformFailedIssue.Code():    transformFailedIssue,
		networkErrorIssue.Code():       networkErrorIssue,
		rateLimitedIssue.Code():        rateLimitedIssue,
		authFailedIssue.Code():         authFailedIssue,
	}
)

// Values returns every cataloged issue, sorted by code for stable listings.
func Values() []*Issue {
	vals := maps.Values(issues)
	slices.SortFunc(vals, func(a, b *Issue) int {
		return strings.Compare(a.code.String(), b.code.String())
	})
	return vals
}

// Get returns the issue for a fault code, or nil when the code has no page.
func Get(code fault.Code) *Issue {
	return issues[code]
}
