package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// photoField is the multipart form field carrying an uploaded photo.
const photoField = "File"

// CurrentUser returns the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, "/user", nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetProfile fetches the profile of username.
func (c *Client) GetProfile(ctx context.Context, username string) (Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, "/profiles/"+username, nil, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// UploadPhoto uploads an image to the caller's gallery and returns the stored photo.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (Photo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(photoField, filename)
	if err != nil {
		return Photo{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return Photo{}, fmt.Errorf("reading photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Photo{}, fmt.Errorf("closing multipart body: %w", err)
	}

	var photo Photo
	if err := c.do(ctx, http.MethodPost, "/photos", nil, &buf, mw.FormDataContentType(), &photo); err != nil {
		return Photo{}, err
	}
	return photo, nil
}

// SetMainPhoto makes the photo the caller's main image.
func (c *Client) SetMainPhoto(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodPost, "/photos/"+id+"/setMain", nil, nil)
}

// DeletePhoto removes a photo from the caller's gallery.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/photos/"+id, nil, nil)
}

// EditProfile updates the caller's display name and bio.
func (c *Client) EditProfile(ctx context.Context, details ProfileDetails) error {
	return c.sendJSON(ctx, http.MethodPut, "/profiles", details, nil)
}

// Follow makes the caller follow username.
func (c *Client) Follow(ctx context.Context, username string) error {
	return c.sendJSON(ctx, http.MethodPost, "/profiles/"+username+"/follow", nil, nil)
}

// Unfollow stops the caller following username.
func (c *Client) Unfollow(ctx context.Context, username string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/profiles/"+username+"/follow", nil, nil)
}

// ListFollowings lists the profiles related to username by predicate.
func (c *Client) ListFollowings(ctx context.Context, username string, predicate FollowPredicate) ([]Profile, error) {
	if !predicate.Valid() {
		return nil, fmt.Errorf("invalid follow predicate %q", predicate)
	}
	var profiles []Profile
	query := url.Values{"predicate": []string{string(predicate)}}
	if err := c.getJSON(ctx, "/profiles/"+username+"/follow", query, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
