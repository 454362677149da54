/*
Package resume implements the identity and window policy that lets a workflow
be re-entered by a stable key.

A key is derived from an external context string (commonly a resolved
address): the string is normalized, hashed, and namespaced as
"<domain>:<token>". Context strings that normalize identically collide into
the same workflow id on purpose; that is how "same place" is recognized.
Textual variants that normalize differently (say, abbreviated street names)
are treated as different places, a known and accepted limitation.

The Manager decides resume-versus-fresh: a prior start within the trailing
window (24h by default) resumes the existing instance, anything older starts
over. The window is anchored at creation time and does not slide on resume.
The policy is layered on top of the catalog and state stores, which know
nothing about expiry.
*/
package resume
