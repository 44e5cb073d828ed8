package feed

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:media="http://search.yahoo.com/mrss/">
  <category term="formula1" label="r/formula1"/>
  <updated>2026-10-19T10:00:00+00:00</updated>
  <id>/r/formula1.rss</id>
  <link rel="self" href="https://www.reddit.com/r/formula1.rss" type="application/atom+xml"/>
  <link rel="alternate" href="https://www.reddit.com/r/formula1" type="text/html"/>
  <title>Formula 1</title>
  <entry>
    <author><name>/u/alpha</name></author>
    <id>t3_aaa</id>
    <link href="https://www.reddit.com/r/formula1/comments/aaa/news_post/"/>
    <media:thumbnail url="https://b.thumbs.redditmedia.com/a.jpg"/>
    <title>News post</title>
  </entry>
  <entry>
    <author><name>/u/bravo</name></author>
    <id>t3_bbb</id>
    <link href="https://www.reddit.com/r/formula1/comments/bbb/discussion_post/"/>
    <title>Discussion post</title>
  </entry>
  <entry>
    <author><name>/u/charlie</name></author>
    <id>t3_ccc</id>
    <link href="https://www.reddit.com/r/formula1/comments/ccc/deleted_post/"/>
    <title>Deleted post</title>
  </entry>
</feed>`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>Formula 1</title>
    <link>https://www.reddit.com/r/formula1</link>
    <atom:link href="https://www.reddit.com/r/formula1.rss" rel="self"/>
    <item>
      <title>News post</title>
      <atom:link href="https://www.reddit.com/ignored" rel="related"/>
      <link>https://www.reddit.com/r/formula1/comments/aaa/news_post/</link>
    </item>
    <item>
      <title>Discussion post</title>
      <link>https://www.reddit.com/r/formula1/comments/bbb/discussion_post/</link>
    </item>
  </channel>
</rss>`

const (
	linkA = "https://www.reddit.com/r/formula1/comments/aaa/news_post/"
	linkB = "https://www.reddit.com/r/formula1/comments/bbb/discussion_post/"
	linkC = "https://www.reddit.com/r/formula1/comments/ccc/deleted_post/"
)

const duplicateFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Formula 1</title>
  <entry>
    <id>t3_aaa</id>
    <link href="https://www.reddit.com/r/formula1/comments/aaa/news_post/"/>
    <title>News post</title>
  </entry>
  <entry>
    <id>t3_bbb</id>
    <link href="https://www.reddit.com/r/formula1/comments/bbb/discussion_post/"/>
    <title>Discussion post</title>
  </entry>
  <entry>
    <id>t3_aaa</id>
    <link href="https://www.reddit.com/r/formula1/comments/aaa/news_post/"/>
    <title>News post again</title>
  </entry>
</feed>`
