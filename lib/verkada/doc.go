// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package verkada is a client for the two Verkada HTTP surfaces the
// decommission tool drives.
//
// The internal surface is the web console's own API. It is reached at
// https://{subdomain}.command.verkada.com/__v/{org}/{path} and
// authenticated with a synthesized cookie plus x-verkada-* headers
// taken from a [Session]. Sessions come from [Authenticator], a small
// state machine that handles the console login and its optional SMS
// challenge:
//
//	Unauthenticated --Login--> Authenticated
//	Unauthenticated --Login--> AwaitingChallenge --CompleteChallenge--> Authenticated
//	(either non-terminal) --hard failure--> Failed
//
// Login never blocks for input. When the organization requires a code,
// Login returns [LoginChallengeRequired] and the caller later supplies
// the code to [Authenticator.CompleteChallenge] from whatever UI it
// has.
//
// The external surface is the documented public API at
// https://{region}.verkada.com. A long-lived API key is exchanged for a
// short-lived token by [TokenExchanger]; [ExternalClient] then sends it
// in x-verkada-auth and retries 429 and 5xx responses under a
// [RetryPolicy]. The internal surface is never retried.
//
// Sessions and tokens are immutable values. Re-authentication builds a
// new value and swaps it in atomically; requests already in flight keep
// the value they started with.
package verkada
