// Package image searches the Unsplash, Pexels and Pixabay stock-photo APIs
// behind one result schema. It aggregates providers concurrently with
// partial-failure tolerance, paces bulk searches, and downloads chosen
// images into the local image store.
package image
