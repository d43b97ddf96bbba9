/*
Package authsdk is the Go client for the jobatrend auth service.

An SDKClient covers the unauthenticated endpoints and logs in:

	client := authsdk.NewSDKClient("https://auth.example.com")

	_, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:    "a@x.com",
		Password: "secret",
		Nickname: "alice",
	})

	session, err := client.Login(ctx, "a@x.com", "secret")

A Session carries the token pair. Shortly before the access token expires
it calls the reissue endpoint, which rotates the refresh token: the pair it
held before is dead from then on. Only the most recent login of an account
holds a live session, so logging in elsewhere makes an older Session fail
with ErrRefreshMismatch on its next reissue.

	me, err := session.Me(ctx)
	err = session.Logout(ctx)

Errors from the server are *APIError values and compare with errors.Is
against the predefined ones:

	if errors.Is(err, authsdk.ErrRefreshMismatch) {
		// replayed or superseded refresh token, log in again
	}

ErrTemporarilyUnavailable is the only transient error; APIError.Retriable
reports it (and rate limiting).
*/
package authsdk
