// Package cloudquery calls paged cloud functions on a Parse/Moralis style
// server and turns their results into typed pages.
//
// A Caller performs one raw function call. Query layers the collaborator
// semantics a page view relies on: an in-flight snapshot while a call
// runs, deduplication of identical concurrent calls, an optional response
// cache, and discarding of responses for requests that were superseded by
// a newer one.
package cloudquery
