package source

import "time"

// descriptors is the fixed static metadata table for every concrete
// source this system knows about: structured-data, encyclopedia,
// editorial, search engines, archival, book corpora, and grounded-search
// LLMs.
var descriptors = map[Type]Descriptor{
	TypeWikidata: {
		Type: TypeWikidata, Name: "wikidata", Category: CategoryFree, Family: FamilyWikimedia,
		Tier: TierStructuredData, IsFree: true, MinDelay: 200 * time.Millisecond, RequestTimeout: 15 * time.Second,
	},
	TypeWikipedia: {
		Type: TypeWikipedia, Name: "wikipedia", Category: CategoryFree, Family: FamilyWikimedia,
		Tier: TierStructuredData, IsFree: true, MinDelay: 200 * time.Millisecond, RequestTimeout: 15 * time.Second,
	},
	TypeBritannica: {
		Type: TypeBritannica, Name: "britannica", Category: CategoryReference, Family: FamilyBritannica,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeBiographyCom: {
		Type: TypeBiographyCom, Name: "biography_com", Category: CategoryReference, Family: FamilyCompilation,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeSmithsonian: {
		Type: TypeSmithsonian, Name: "smithsonian", Category: CategoryReference, Family: FamilyCompilation,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeHistory: {
		Type: TypeHistory, Name: "history", Category: CategoryReference, Family: FamilyCompilation,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypePeople: {
		Type: TypePeople, Name: "people", Category: CategoryNews, Family: FamilyCompilation,
		Tier: TierMarginalEditorial, IsFree: true, MinDelay: 750 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeBBC: {
		Type: TypeBBC, Name: "bbc", Category: CategoryNews, Family: FamilyTier1News,
		Tier: TierTier1News, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeNYT: {
		Type: TypeNYT, Name: "nyt", Category: CategoryNews, Family: FamilyTier1News,
		Tier: TierTier1News, IsFree: false, EstimatedCostPerQuery: 0.0, MinDelay: 1 * time.Second, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeGuardian: {
		Type: TypeGuardian, Name: "guardian", Category: CategoryNews, Family: FamilyTier1News,
		Tier: TierTier1News, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeAP: {
		Type: TypeAP, Name: "ap", Category: CategoryNews, Family: FamilyTier1News,
		Tier: TierTier1News, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeVariety: {
		Type: TypeVariety, Name: "variety", Category: CategoryNews, Family: FamilyTradePress,
		Tier: TierTradePress, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeTMZ: {
		Type: TypeTMZ, Name: "tmz", Category: CategoryObituary, Family: FamilyTabloid,
		Tier: TierMarginalEditorial, IsFree: true, MinDelay: 750 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeIMDbBio: {
		Type: TypeIMDbBio, Name: "imdb_bio", Category: CategoryReference, Family: FamilyFilmography,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeGoogleCSE: {
		Type: TypeGoogleCSE, Name: "google_cse", Category: CategoryWebSearch, Family: FamilyWebSearch,
		Tier: TierWebSearch, IsFree: false, EstimatedCostPerQuery: 0.005, MinDelay: 1 * time.Second, RequestTimeout: 10 * time.Second,
	},
	TypeBing: {
		Type: TypeBing, Name: "bing", Category: CategoryWebSearch, Family: FamilyWebSearch,
		Tier: TierWebSearch, IsFree: false, EstimatedCostPerQuery: 0.003, MinDelay: 1 * time.Second, RequestTimeout: 10 * time.Second,
	},
	TypeDuckDuckGo: {
		Type: TypeDuckDuckGo, Name: "duckduckgo", Category: CategoryWebSearch, Family: FamilyWebSearch,
		Tier: TierWebSearch, IsFree: true, MinDelay: 1 * time.Second, RequestTimeout: 10 * time.Second,
		SupportsArchiveFallback: true,
	},
	TypeBrave: {
		Type: TypeBrave, Name: "brave", Category: CategoryWebSearch, Family: FamilyWebSearch,
		Tier: TierWebSearch, IsFree: false, EstimatedCostPerQuery: 0.002, MinDelay: 1 * time.Second, RequestTimeout: 10 * time.Second,
	},
	TypeInternetArchive: {
		Type: TypeInternetArchive, Name: "internet_archive", Category: CategoryArchives, Family: FamilyArchival,
		Tier: TierArchival, IsFree: true, MinDelay: 1 * time.Second, RequestTimeout: 20 * time.Second,
	},
	TypeChroniclingAm: {
		Type: TypeChroniclingAm, Name: "chronicling_america", Category: CategoryArchives, Family: FamilyArchival,
		Tier: TierArchival, IsFree: true, MinDelay: 1 * time.Second, RequestTimeout: 20 * time.Second,
	},
	TypeTrove: {
		Type: TypeTrove, Name: "trove", Category: CategoryArchives, Family: FamilyArchival,
		Tier: TierArchival, IsFree: true, MinDelay: 1 * time.Second, RequestTimeout: 20 * time.Second,
	},
	TypeEuropeana: {
		Type: TypeEuropeana, Name: "europeana", Category: CategoryArchives, Family: FamilyArchival,
		Tier: TierArchival, IsFree: true, MinDelay: 1 * time.Second, RequestTimeout: 20 * time.Second,
	},
	TypeGoogleBooks: {
		Type: TypeGoogleBooks, Name: "google_books", Category: CategoryBooks, Family: FamilyBookCorpus,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
	},
	TypeOpenLibrary: {
		Type: TypeOpenLibrary, Name: "open_library", Category: CategoryBooks, Family: FamilyBookCorpus,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
	},
	TypeIABooks: {
		Type: TypeIABooks, Name: "ia_books", Category: CategoryBooks, Family: FamilyBookCorpus,
		Tier: TierSecondaryCompilation, IsFree: true, MinDelay: 500 * time.Millisecond, RequestTimeout: 15 * time.Second,
	},
	TypeGeminiGrounded: {
		Type: TypeGeminiGrounded, Name: "gemini_grounded", Category: CategoryAI, Family: FamilyGroundedModel,
		Tier: TierAI, IsFree: false, EstimatedCostPerQuery: 0.01, MinDelay: 1 * time.Second, RequestTimeout: 30 * time.Second,
	},
	TypeClaudeGrounded: {
		Type: TypeClaudeGrounded, Name: "claude_grounded", Category: CategoryAI, Family: FamilyGroundedModel,
		Tier: TierAI, IsFree: false, EstimatedCostPerQuery: 0.01, MinDelay: 1 * time.Second, RequestTimeout: 30 * time.Second,
	},
}

// BookSourceTypes are the three sources always tried before the
// orchestrator's early-stop rule is allowed to halt a run.
var BookSourceTypes = map[Type]bool{
	TypeGoogleBooks: true,
	TypeOpenLibrary: true,
	TypeIABooks:     true,
}

// Descriptors returns the full fixed catalog.
func Descriptors() map[Type]Descriptor {
	return descriptors
}
