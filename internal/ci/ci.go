// Package ci discovers the CI job a pipeline run belongs to.
package ci

import (
	"os"
	"strconv"
	"strings"
)

// Provider identifies a CI system.
type Provider string

// Known providers.
const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
	ProviderGeneric   Provider = "generic"
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the provenance recorded in a run report.
type Environment struct {
	Provider   Provider `json:"provider"`
	Commit     string   `json:"commit,omitempty"`
	Ref        string   `json:"ref,omitempty"`
	Repository string   `json:"repository,omitempty"`
	JobURL     string   `json:"job_url,omitempty"`
}

// Detect returns the environment of the current CI job, or nil outside CI.
func Detect(lookup LookupFunc) *Environment {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch {
	case lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "":
		return github(lookup)
	case strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "":
		return gitlab(lookup)
	case lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "":
		return bitbucket(lookup)
	}

	if ok, _ := strconv.ParseBool(lookup("CI")); ok {
		return &Environment{Provider: ProviderGeneric}
	}
	return nil
}

// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func github(lookup LookupFunc) *Environment {
	env := &Environment{
		Provider:   ProviderGitHub,
		Commit:     lookup("GITHUB_SHA"),
		Ref:        lookup("GITHUB_REF"),
		Repository: lookup("GITHUB_REPOSITORY"),
	}
	if server, runID := lookup("GITHUB_SERVER_URL"), lookup("GITHUB_RUN_ID"); server != "" && env.Repository != "" && runID != "" {
		env.JobURL = strings.TrimSuffix(server, "/") + "/" + env.Repository + "/actions/runs/" + runID
	}
	return env
}

// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func gitlab(lookup LookupFunc) *Environment {
	ref := lookup("CI_MERGE_REQUEST_REF_PATH")
	switch {
	case lookup("CI_COMMIT_TAG") != "":
		ref = "refs/tags/" + lookup("CI_COMMIT_TAG")
	case ref == "" && lookup("CI_COMMIT_REF_NAME") != "":
		ref = "refs/heads/" + lookup("CI_COMMIT_REF_NAME")
	}
	return &Environment{
		Provider:   ProviderGitLab,
		Commit:     lookup("CI_COMMIT_SHA"),
		Ref:        ref,
		Repository: lookup("CI_PROJECT_PATH"),
		JobURL:     lookup("CI_JOB_URL"),
	}
}

// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func bitbucket(lookup LookupFunc) *Environment {
	var ref string
	if tag := lookup("BITBUCKET_TAG"); tag != "" {
		ref = "refs/tags/" + tag
	} else if branch := lookup("BITBUCKET_BRANCH"); branch != "" {
		ref = "refs/heads/" + branch
	}

	repo := lookup("BITBUCKET_REPO_FULL_NAME")
	if repo == "" && lookup("BITBUCKET_WORKSPACE") != "" {
		repo = lookup("BITBUCKET_WORKSPACE") + "/" + lookup("BITBUCKET_REPO_SLUG")
	}

	env := &Environment{
		Provider:   ProviderBitbucket,
		Commit:     lookup("BITBUCKET_COMMIT"),
		Ref:        ref,
		Repository: repo,
	}
	if origin, build := lookup("BITBUCKET_GIT_HTTP_ORIGIN"), lookup("BITBUCKET_BUILD_NUMBER"); origin != "" && build != "" {
		env.JobURL = strings.TrimSuffix(origin, "/") + "/addon/pipelines/home#!/results/" + build
	}
	return env
}
